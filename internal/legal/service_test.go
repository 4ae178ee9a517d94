package legal

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/dbtest"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

type fakeFiles struct {
	count   int
	removed []string
}

func (f *fakeFiles) Store(_ context.Context, _ uuid.UUID, kind enums.UploadKind, file uploads.File) (*uploads.Stored, error) {
	f.count++
	url := "https://cdn.example.com/" + kind.String() + "/" + uuid.NewString() + "/" + file.FileName
	return &uploads.Stored{Kind: kind, URL: url, ContentType: "application/pdf"}, nil
}

func (f *fakeFiles) Remove(_ context.Context, publicURL string) error {
	f.removed = append(f.removed, publicURL)
	return nil
}

func newTestService(t *testing.T) (Service, *fakeFiles) {
	t.Helper()
	files := &fakeFiles{}
	svc, err := NewService(NewRepository(dbtest.Open(t)), files)
	require.NoError(t, err)
	return svc, files
}

func pdf(name string) *uploads.File {
	return &uploads.File{FileName: name, Data: []byte("%PDF-1.4")}
}

func TestCreateValidation(t *testing.T) {
	svc, files := newTestService(t)
	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: " ", TargetAudience: "everyone"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, files.count)
}

func TestPublicListFiltersByAudienceAndActive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	admin := uuid.New()
	inactive := false

	_, err := svc.Create(ctx, admin, CreateInput{Title: "Términos", TargetAudience: enums.LegalAudienceBoth, File: pdf("terminos.pdf")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CreateInput{Title: "Contrato embajador", TargetAudience: enums.LegalAudienceAmbassadors, File: pdf("contrato.pdf")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CreateInput{Title: "Póliza", TargetAudience: enums.LegalAudienceMembers, File: pdf("poliza.pdf")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, CreateInput{Title: "Borrador", TargetAudience: enums.LegalAudienceMembers, File: pdf("borrador.pdf"), IsActive: &inactive})
	require.NoError(t, err)

	members, err := svc.PublicList(ctx, "members")
	require.NoError(t, err)
	titles := []string{}
	for _, doc := range members {
		titles = append(titles, doc.Title)
	}
	assert.ElementsMatch(t, []string{"Términos", "Póliza"}, titles)

	all, err := svc.PublicList(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	admins, err := svc.AdminList(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 4)

	_, err = svc.PublicList(ctx, "vets")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateKeepsDraftInactive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inactive := false

	created, err := svc.Create(ctx, uuid.New(), CreateInput{Title: "Borrador", TargetAudience: enums.LegalAudienceMembers, File: pdf("borrador.pdf"), IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, created.IsActive)

	listed, err := svc.AdminList(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.False(t, listed[0].IsActive)
}

func TestUpdateReplacesFileAndDeleteRemovesIt(t *testing.T) {
	svc, files := newTestService(t)
	ctx := context.Background()
	admin := uuid.New()

	doc, err := svc.Create(ctx, admin, CreateInput{Title: "Aviso de privacidad", TargetAudience: enums.LegalAudienceMembers, File: pdf("v1.pdf")})
	require.NoError(t, err)

	title := "Aviso de privacidad 2026"
	audience := enums.LegalAudienceBoth
	updated, err := svc.Update(ctx, admin, doc.ID, UpdateInput{Title: &title, TargetAudience: &audience, File: pdf("v2.pdf")})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, enums.LegalAudienceBoth, updated.TargetAudience)
	assert.NotEqual(t, doc.FileURL, updated.FileURL)
	assert.Equal(t, []string{doc.FileURL}, files.removed)

	require.NoError(t, svc.Delete(ctx, doc.ID))
	assert.Equal(t, []string{doc.FileURL, updated.FileURL}, files.removed)

	err = svc.Delete(ctx, doc.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
