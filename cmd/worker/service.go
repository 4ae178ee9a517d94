package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

type consumer interface {
	Run(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type named[T any] struct {
	name string
	item T
}

// Service checks the worker's dependencies once, then runs every consumer
// until one fails or the context ends.
type Service struct {
	logg         *logger.Logger
	dependencies []named[pinger]
	consumers    []named[consumer]
}

func NewService(logg *logger.Logger) *Service {
	return &Service{logg: logg}
}

func (s *Service) Depend(name string, p pinger) *Service {
	s.dependencies = append(s.dependencies, named[pinger]{name, p})
	return s
}

func (s *Service) Consume(name string, c consumer) *Service {
	s.consumers = append(s.consumers, named[consumer]{name, c})
	return s
}

func (s *Service) ready(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, dep := range s.dependencies {
		g.Go(func() error {
			if err := dep.item.Ping(gctx); err != nil {
				return fmt.Errorf("%s not ready: %w", dep.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Run returns nil on a clean shutdown. The first consumer error cancels the rest.
func (s *Service) Run(ctx context.Context) error {
	if len(s.consumers) == 0 {
		return errors.New("worker has no consumers")
	}
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.logg.Info(ctx, "worker dependencies ready")

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.consumers {
		g.Go(func() error {
			cctx := s.logg.WithField(gctx, "consumer", c.name)
			s.logg.Info(cctx, "consumer starting")
			err := c.item.Run(cctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("%s consumer: %w", c.name, err)
		})
	}
	return g.Wait()
}
