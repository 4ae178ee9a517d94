package controllers

import (
	"net/http"
	"strings"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/pets"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

// RegisterPet accepts the multipart pet form. The pet starts pending review.
func RegisterPet(svc pets.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("pets"))
			return
		}
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		birthDate, err := parseDate("birth_date", validators.FormValue(r, "birth_date"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		files, err := optionalFiles(r, "photo", "photo2", "vet_certificate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pet, err := svc.Register(r.Context(), member.ID, pets.RegisterInput{
			Name:           validators.FormValue(r, "name"),
			Species:        enums.PetSpecies(strings.ToLower(validators.FormValue(r, "species"))),
			Breed:          validators.FormValue(r, "breed"),
			BreedSize:      enums.BreedSize(strings.ToLower(validators.FormValue(r, "breed_size"))),
			BirthDate:      birthDate,
			RUAC:           validators.FormValue(r, "ruac"),
			Photo:          files["photo"],
			Photo2:         files["photo2"],
			VetCertificate: files["vet_certificate"],
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pet)
	}
}

func ListMyPets(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForMember(r.Context(), member.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetMyPet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := parseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pet, err := svc.GetForMember(r.Context(), member.ID, petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

func GetPetWaitingPeriod(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := parseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.WaitingPeriod(r.Context(), member.ID, petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SubmitPetAppeal appeals a rejection with a message and up to two
// replacement photos.
func SubmitPetAppeal(svc pets.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := parseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		files, err := optionalFiles(r, "photo", "photo2")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pet, err := svc.SubmitAppeal(r.Context(), member.ID, petID, pets.AppealInput{
			Message: validators.FormValue(r, "message"),
			Photo:   files["photo"],
			Photo2:  files["photo2"],
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

// SubmitPetUpdate answers an action_required review.
func SubmitPetUpdate(svc pets.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := parseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		files, err := optionalFiles(r, "photo", "photo2", "vet_certificate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pet, err := svc.SubmitUpdate(r.Context(), member.ID, petID, pets.UpdateInput{
			Message:        validators.FormValue(r, "message"),
			Photo:          files["photo"],
			Photo2:         files["photo2"],
			VetCertificate: files["vet_certificate"],
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

func ListMyPetAppeals(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := parseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.AppealLog(r.Context(), member.ID, petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
