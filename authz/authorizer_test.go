package authz_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/auth"
	authTest "github.com/tidepool-org/vitals/auth/test"
	"github.com/tidepool-org/vitals/authz"
)

func subject(id string, role auth.Role) map[string]interface{} {
	return map[string]interface{}{
		"subjectId": id,
		"role":      string(role),
	}
}

var _ = Describe("Request Authorizer", func() {
	var authorizer authz.RequestAuthorizer

	BeforeEach(func() {
		var err error
		authorizer, err = authz.NewRequestAuthorizer(zap.NewNop().Sugar())
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("Evaluate policy", func() {
		It("allows doctors to read the series of any patient", func() {
			input := map[string]interface{}{
				"path":   []string{"v1", "patients", "patient-1", "series", "ecg"},
				"method": "GET",
				"auth":   subject("doctor-1", auth.RoleDoctor),
			}
			Expect(authorizer.EvaluatePolicy(context.Background(), input)).To(Succeed())
		})

		It("allows admins to read the alerts of any patient", func() {
			input := map[string]interface{}{
				"path":   []string{"v1", "patients", "patient-1", "alerts"},
				"method": "GET",
				"auth":   subject("admin-1", auth.RoleAdmin),
			}
			Expect(authorizer.EvaluatePolicy(context.Background(), input)).To(Succeed())
		})

		It("allows patients to read their own series", func() {
			input := map[string]interface{}{
				"path":   []string{"v1", "patients", "patient-1", "series", "heartRate"},
				"method": "GET",
				"auth":   subject("patient-1", auth.RolePatient),
			}
			Expect(authorizer.EvaluatePolicy(context.Background(), input)).To(Succeed())
		})

		It("prevents patients from reading the series of other patients", func() {
			input := map[string]interface{}{
				"path":   []string{"v1", "patients", "patient-2", "series", "heartRate"},
				"method": "GET",
				"auth":   subject("patient-1", auth.RolePatient),
			}
			Expect(authorizer.EvaluatePolicy(context.Background(), input)).To(Equal(authz.ErrUnauthorized))
		})

		It("allows doctors to change limits", func() {
			input := map[string]interface{}{
				"path":   []string{"v1", "patients", "patient-1", "limits"},
				"method": "PUT",
				"auth":   subject("doctor-1", auth.RoleDoctor),
			}
			Expect(authorizer.EvaluatePolicy(context.Background(), input)).To(Succeed())
		})

		It("prevents patients from changing their own limits", func() {
			input := map[string]interface{}{
				"path":   []string{"v1", "patients", "patient-1", "limits"},
				"method": "PUT",
				"auth":   subject("patient-1", auth.RolePatient),
			}
			Expect(authorizer.EvaluatePolicy(context.Background(), input)).To(Equal(authz.ErrUnauthorized))
		})

		It("prevents unauthenticated requests", func() {
			input := map[string]interface{}{
				"path":   []string{"v1", "patients", "patient-1", "series", "ecg"},
				"method": "GET",
			}
			Expect(authorizer.EvaluatePolicy(context.Background(), input)).To(Equal(authz.ErrUnauthorized))
		})

		It("prevents access to unknown routes", func() {
			input := map[string]interface{}{
				"path":   []string{"v1", "users"},
				"method": "GET",
				"auth":   subject("admin-1", auth.RoleAdmin),
			}
			Expect(authorizer.EvaluatePolicy(context.Background(), input)).To(Equal(authz.ErrUnauthorized))
		})
	})

	Describe("Authorize", func() {
		authorize := func(method, path string, token string) error {
			authenticator, err := auth.NewTokenAuthenticator(authTest.TokenSecret)
			Expect(err).ToNot(HaveOccurred())

			ec := echo.New().NewContext(httptest.NewRequest(method, path, nil), httptest.NewRecorder())
			valid, err := authenticator.ValidateAndSetAuthData(token, ec)
			Expect(err).ToNot(HaveOccurred())
			Expect(valid).To(BeTrue())

			return authorizer.Authorize(context.Background(), &openapi3filter.AuthenticationInput{
				RequestValidationInput: &openapi3filter.RequestValidationInput{
					Request: ec.Request(),
				},
			})
		}

		It("uses the authenticated subject of the request", func() {
			token := authTest.Token("patient-1", auth.RolePatient, time.Hour)
			Expect(authorize(http.MethodGet, "/v1/patients/patient-1/limits", token)).To(Succeed())
			Expect(authorize(http.MethodGet, "/v1/patients/patient-2/limits", token)).To(Equal(authz.ErrUnauthorized))
		})

		It("allows staff to change limits of the patient in the path", func() {
			token := authTest.Token("doctor-1", auth.RoleDoctor, time.Hour)
			Expect(authorize(http.MethodPut, "/v1/patients/patient-1/limits", token)).To(Succeed())
		})
	})
})
