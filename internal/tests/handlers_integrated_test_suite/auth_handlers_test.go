package handlers_integrated_test_suite

import (
	"encoding/json"
	"net/http"
	"testing"

	api "github.com/rogerio-castellano/shopnesty/internal/http"
	handler "github.com/rogerio-castellano/shopnesty/internal/http/handlers"
	rl "github.com/rogerio-castellano/shopnesty/internal/http/rate_limiter"
	"github.com/rogerio-castellano/shopnesty/internal/models"
)

func runWithVisitorCleanup(t *testing.T, name string, testFunc func(t *testing.T)) {
	t.Run(name, func(t *testing.T) {
		rl.CleanupAllVisitors()
		testFunc(t)
	})
}

func TestAuthFlow(t *testing.T) {
	requireDatabase(t)
	t.Cleanup(clearAllUsersExceptAdmin)
	r := api.NewRouter()

	runWithVisitorCleanup(t, "Register then login", func(t *testing.T) {
		creds := handler.CredentialsRequest{Username: "integrated-user", Password: "secret-pass", Name: "Integrated"}
		if w := doRequest(r, http.MethodPost, "/register", "", creds); w.Code != http.StatusCreated {
			t.Fatalf("expected 201 Created, got %d", w.Code)
		}
		if w := doRequest(r, http.MethodPost, "/register", "", creds); w.Code != http.StatusConflict {
			t.Errorf("expected 409 Conflict on duplicate, got %d", w.Code)
		}
		tok, err := generateToken(r, creds.Username, creds.Password)
		if err != nil || tok == "" {
			t.Fatalf("expected login to succeed: %v", err)
		}
		if w := doRequest(r, http.MethodGet, "/cart", tok, nil); w.Code != http.StatusOK {
			t.Errorf("expected customer to read cart, got %d", w.Code)
		}
	})

	runWithVisitorCleanup(t, "Protected route without token is rejected", func(t *testing.T) {
		w := doRequest(r, http.MethodPost, "/products", "", handler.ProductRequest{Name: "AuthBox", Price: 999.0, Quantity: 1})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 Unauthorized, got %d", w.Code)
		}
	})
}

func TestProfileFlow(t *testing.T) {
	requireDatabase(t)
	t.Cleanup(clearAllUsersExceptAdmin)
	r := api.NewRouter()

	shopper, err := newCustomer(r)
	if err != nil {
		t.Fatal(err)
	}

	runWithVisitorCleanup(t, "Rename persists", func(t *testing.T) {
		w := doRequest(r, http.MethodPatch, "/me", shopper, handler.UpdateProfileRequest{Name: " Renamed Shopper "})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
		}

		w = doRequest(r, http.MethodGet, "/me", shopper, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", w.Code)
		}
		var p handler.ProfileResponse
		if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
			t.Fatal(err)
		}
		if p.Name != "Renamed Shopper" || p.Role != models.RoleCustomer {
			t.Errorf("unexpected profile %+v", p)
		}
	})

	runWithVisitorCleanup(t, "Blank name is rejected", func(t *testing.T) {
		w := doRequest(r, http.MethodPatch, "/me", shopper, handler.UpdateProfileRequest{Name: ""})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 Bad Request, got %d", w.Code)
		}
	})
}
