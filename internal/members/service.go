// Package members keeps the local mirror of Memberstack members.
package members

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/memberstack"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

type identityProvider interface {
	GetMember(ctx context.Context, memberID string) (memberstack.Member, error)
}

// Service resolves authenticated identities into local members and serves admin reads.
type Service interface {
	Resolve(ctx context.Context, memberstackID string) (*models.Member, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Member, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[MemberDTO], error)
}

// Profile is the subset of identity fields mirrored locally.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
	Phone     *string
}

// ListParams configures the admin member listing.
type ListParams struct {
	Search string
	Limit  int
	Cursor string
}

type service struct {
	repo     Repository
	identity identityProvider
}

// NewService wires the members dependencies.
func NewService(repo Repository, identity identityProvider) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "members repository required")
	}
	if identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity provider required")
	}
	return &service{repo: repo, identity: identity}, nil
}

// Resolve returns the local member for a Memberstack id, creating the mirror
// row from the identity provider on first sight.
func (s *service) Resolve(ctx context.Context, memberstackID string) (*models.Member, error) {
	memberstackID = strings.TrimSpace(memberstackID)
	if memberstackID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "member identity missing")
	}

	member, err := s.repo.FindByMemberstackID(ctx, memberstackID)
	if err == nil {
		return member, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load member")
	}

	remote, err := s.identity.GetMember(ctx, memberstackID)
	if err != nil {
		return nil, err
	}

	profile := profileFromIdentity(remote)
	member = &models.Member{
		MemberstackID: memberstackID,
		Email:         profile.Email,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		Phone:         profile.Phone,
	}
	if err := s.repo.Create(ctx, member); err != nil {
		if db.IsUniqueViolation(err, "") {
			// another request mirrored the same member first
			existing, findErr := s.repo.FindByMemberstackID(ctx, memberstackID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load member")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create member")
	}
	return member, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load member")
	}
	return member, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[MemberDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listMembersParams{
		Search: params.Search,
		Limit:  pagination.LimitWithBuffer(params.Limit),
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}

	page := pagination.BuildPage(rows, params.Limit, func(m models.Member) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return &pagination.Page[MemberDTO]{Items: FromModels(page.Items), NextCursor: page.NextCursor}, nil
}

func profileFromIdentity(remote memberstack.Member) Profile {
	profile := Profile{
		Email:     strings.ToLower(strings.TrimSpace(remote.Email)),
		FirstName: strings.TrimSpace(remote.FirstName()),
		LastName:  strings.TrimSpace(remote.LastName()),
	}
	if phone := strings.TrimSpace(remote.Phone()); phone != "" {
		profile.Phone = &phone
	}
	return profile
}
