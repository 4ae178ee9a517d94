package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/api/middleware"
	"github.com/clubpataamiga/pataamiga-backend/internal/pets"
	"github.com/clubpataamiga/pataamiga-backend/internal/waitingperiod"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

const testMaxBytes = 5 << 20

type stubPetService struct {
	registered *pets.RegisterInput
	appeal     *pets.AppealInput
	decision   *pets.DecisionInput
	list       []pets.PetDTO
	err        error
}

func (s *stubPetService) Register(ctx context.Context, memberID uuid.UUID, input pets.RegisterInput) (*pets.PetDTO, error) {
	s.registered = &input
	return &pets.PetDTO{ID: uuid.New(), MemberID: memberID, Name: input.Name, Status: enums.PetStatusPending}, s.err
}

func (s *stubPetService) ListForMember(ctx context.Context, memberID uuid.UUID) ([]pets.PetDTO, error) {
	return s.list, s.err
}

func (s *stubPetService) GetForMember(ctx context.Context, memberID, petID uuid.UUID) (*pets.PetDTO, error) {
	return nil, s.err
}

func (s *stubPetService) WaitingPeriod(ctx context.Context, memberID, petID uuid.UUID) (*waitingperiod.Result, error) {
	return nil, s.err
}

func (s *stubPetService) SubmitAppeal(ctx context.Context, memberID, petID uuid.UUID, input pets.AppealInput) (*pets.PetDTO, error) {
	s.appeal = &input
	if s.err != nil {
		return nil, s.err
	}
	return &pets.PetDTO{ID: petID, Status: enums.PetStatusAppealed, AppealCount: 1}, nil
}

func (s *stubPetService) SubmitUpdate(ctx context.Context, memberID, petID uuid.UUID, input pets.UpdateInput) (*pets.PetDTO, error) {
	return nil, s.err
}

func (s *stubPetService) AppealLog(ctx context.Context, memberID, petID uuid.UUID) ([]pets.AppealLogDTO, error) {
	return nil, s.err
}

func (s *stubPetService) AdminList(ctx context.Context, params pets.AdminListParams) (*pagination.Page[pets.PetDTO], error) {
	return &pagination.Page[pets.PetDTO]{}, s.err
}

func (s *stubPetService) AdminGet(ctx context.Context, petID uuid.UUID) (*pets.PetDTO, error) {
	return nil, s.err
}

func (s *stubPetService) Decide(ctx context.Context, input pets.DecisionInput) (*pets.PetDTO, error) {
	s.decision = &input
	if s.err != nil {
		return nil, s.err
	}
	return &pets.PetDTO{ID: input.PetID, Status: input.Status}, nil
}

func (s *stubPetService) AddAdminMessage(ctx context.Context, petID, adminID uuid.UUID, message string) (*pets.AppealLogDTO, error) {
	return &pets.AppealLogDTO{ID: uuid.New(), AuthorType: enums.AppealAuthorAdminRequest, Message: message}, s.err
}

func (s *stubPetService) AdminAppealLog(ctx context.Context, petID uuid.UUID) ([]pets.AppealLogDTO, error) {
	return nil, s.err
}

func (s *stubPetService) NotifyCompletedWaitingPeriods(ctx context.Context, lookback time.Duration, limit int) (int, error) {
	return 0, s.err
}

func multipartRequest(t *testing.T, url string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, data := range files {
		part, err := mw.CreateFormFile(field, field+".jpg")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func withMember(req *http.Request) (*http.Request, *models.Member) {
	member := &models.Member{ID: uuid.New(), MemberstackID: "mem_test"}
	return req.WithContext(middleware.WithMember(req.Context(), member)), member
}

func withAdmin(req *http.Request, role enums.AdminRole) (*http.Request, uuid.UUID) {
	adminID := uuid.New()
	return req.WithContext(middleware.WithAdmin(req.Context(), adminID, role)), adminID
}

func TestRegisterPetReadsMultipartForm(t *testing.T) {
	svc := &stubPetService{}
	req := multipartRequest(t, "/api/v1/pets", map[string]string{
		"name":       "  Luna ",
		"species":    "DOG",
		"breed":      "Mestiza",
		"breed_size": "medium",
		"birth_date": "2021-04-02",
		"ruac":       "ruac-123",
	}, map[string][]byte{"photo": []byte("jpeg-bytes")})
	req, _ = withMember(req)

	resp := httptest.NewRecorder()
	RegisterPet(svc, testMaxBytes, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, svc.registered)
	require.Equal(t, "Luna", svc.registered.Name)
	require.Equal(t, enums.PetSpecies("dog"), svc.registered.Species)
	require.Equal(t, enums.BreedSize("medium"), svc.registered.BreedSize)
	require.NotNil(t, svc.registered.BirthDate)
	require.NotNil(t, svc.registered.Photo)
	require.Equal(t, []byte("jpeg-bytes"), svc.registered.Photo.Data)
	require.Nil(t, svc.registered.Photo2)
}

func TestRegisterPetRejectsBadDate(t *testing.T) {
	req := multipartRequest(t, "/api/v1/pets", map[string]string{"name": "Luna", "birth_date": "02/04/2021"}, nil)
	req, _ = withMember(req)
	resp := httptest.NewRecorder()
	RegisterPet(&stubPetService{}, testMaxBytes, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "birth_date")
}

func TestRegisterPetRejectsOversizedBody(t *testing.T) {
	req := multipartRequest(t, "/api/v1/pets", map[string]string{"name": "Luna"}, map[string][]byte{"photo": bytes.Repeat([]byte("x"), 4096)})
	req, _ = withMember(req)
	resp := httptest.NewRecorder()
	RegisterPet(&stubPetService{}, 1024, testLogger())(resp, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

func TestSubmitPetAppeal(t *testing.T) {
	svc := &stubPetService{}
	petID := uuid.New()
	req := multipartRequest(t, "/api/v1/pets/"+petID.String()+"/appeal", map[string]string{
		"message": "Subo fotos nuevas con mejor luz",
	}, map[string][]byte{"photo2": []byte("new-photo")})
	req, _ = withMember(req)
	req = addRouteParam(req, "petId", petID.String())

	resp := httptest.NewRecorder()
	SubmitPetAppeal(svc, testMaxBytes, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "Subo fotos nuevas con mejor luz", svc.appeal.Message)
	require.Nil(t, svc.appeal.Photo)
	require.NotNil(t, svc.appeal.Photo2)
	require.Contains(t, resp.Body.String(), `"status":"appealed"`)
}

func TestSubmitPetAppealCapReached(t *testing.T) {
	svc := &stubPetService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "appeal limit reached")}
	petID := uuid.New()
	req := multipartRequest(t, "/api/v1/pets/"+petID.String()+"/appeal", map[string]string{"message": "Tercera apelación por favor"}, nil)
	req, _ = withMember(req)
	req = addRouteParam(req, "petId", petID.String())

	resp := httptest.NewRecorder()
	SubmitPetAppeal(svc, testMaxBytes, testLogger())(resp, req)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestAdminDecidePet(t *testing.T) {
	svc := &stubPetService{}
	petID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/pets/"+petID.String()+"/status", strings.NewReader(`{"status":"rejected","admin_notes":"Fotos borrosas"}`))
	req, adminID := withAdmin(req, enums.AdminRoleAdmin)
	req = addRouteParam(req, "petId", petID.String())

	resp := httptest.NewRecorder()
	AdminDecidePet(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, pets.DecisionInput{
		PetID:   petID,
		AdminID: adminID,
		Status:  enums.PetStatusRejected,
		Notes:   "Fotos borrosas",
	}, *svc.decision)
}

func TestAdminDecidePetRejectsUnknownStatus(t *testing.T) {
	svc := &stubPetService{}
	petID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/pets/"+petID.String()+"/status", strings.NewReader(`{"status":"appealed"}`))
	req, _ = withAdmin(req, enums.AdminRoleAdmin)
	req = addRouteParam(req, "petId", petID.String())

	resp := httptest.NewRecorder()
	AdminDecidePet(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Nil(t, svc.decision)
}

func TestAdminMessagePetRequiresText(t *testing.T) {
	petID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/pets/"+petID.String()+"/messages", strings.NewReader(`{"message":"   "}`))
	req, _ = withAdmin(req, enums.AdminRoleAdmin)
	req = addRouteParam(req, "petId", petID.String())

	resp := httptest.NewRecorder()
	AdminMessagePet(&stubPetService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
