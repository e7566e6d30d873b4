package handlers_integrated_test_suite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/shopnesty/internal/db"
	api "github.com/rogerio-castellano/shopnesty/internal/http"
	handler "github.com/rogerio-castellano/shopnesty/internal/http/handlers"
	rl "github.com/rogerio-castellano/shopnesty/internal/http/rate_limiter"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/reconcile"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"github.com/rogerio-castellano/shopnesty/internal/report"
	"golang.org/x/crypto/bcrypt"
)

var (
	token       string
	productRepo *repo.PostgresProductRepository
	userRepo    *repo.PostgresUserRepository
	database    *sql.DB
)

func init() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("DATABASE_URL not set, integrated handler tests will be skipped")
		return
	}

	conn, err := db.Connect(context.Background(), dbURL)
	if err != nil {
		panic(fmt.Sprintf("could not connect to database: %v", err))
	}
	if err := db.Migrate(context.Background(), conn); err != nil {
		panic(fmt.Sprintf("could not migrate database: %v", err))
	}
	database = conn
	setupTestRepos("secret")

	token, err = generateToken(api.NewRouter(), "admin", "secret")
	if err != nil {
		panic(fmt.Sprintf("error generating token: %v", err))
	}
}

// requireDatabase skips t when no database is configured. Call it before
// registering cleanups that touch the database.
func requireDatabase(t *testing.T) {
	t.Helper()
	if database == nil {
		t.Skip("DATABASE_URL not set")
	}
}

func setupTestRepos(password string) {
	rl.Configure(1000, 1000)

	productRepo = repo.NewPostgresProductRepository(database)
	handler.SetProductRepo(productRepo)

	movementRepo := repo.NewPostgresMovementRepository(database)
	handler.SetMovementRepo(movementRepo)

	transactionRepo := repo.NewPostgresTransactionRepository(database)
	handler.SetTransactionRepo(transactionRepo)

	userRepo = repo.NewPostgresUserRepository(database)
	handler.SetUserRepo(userRepo)

	createAdminIfNotExists(password)

	handler.SetEngine(reconcile.New(repo.NewPostgresTxStore(database)))
	handler.SetReportService(report.NewService(productRepo, transactionRepo, movementRepo))
}

func createAdminIfNotExists(password string) {
	exists, err := userExists("admin")
	if err != nil {
		fmt.Println("error checking if admin exists", err)
	}

	if !exists {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		userRepo.CreateUser(context.Background(), models.User{
			Username:     "admin",
			Name:         "Admin",
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
		})
	}
}

func userExists(username string) (bool, error) {
	const query = `SELECT COUNT(*) FROM users WHERE username = $1`

	var count int
	err := database.QueryRow(query, username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query failed: %w", err)
	}
	return count > 0, nil
}

func clearAllProducts() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := database.ExecContext(ctx, "TRUNCATE TABLE products, cart_lines, carts, movements CASCADE")
	if err != nil {
		fmt.Println(fmt.Errorf("failed to truncate products table: %w", err))
	}
}

func clearAllUsersExceptAdmin() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := database.ExecContext(ctx, "DELETE FROM users WHERE username <> 'admin'")
	if err != nil {
		fmt.Println(fmt.Errorf("failed to delete users: %w", err))
	}
}

func generateToken(r http.Handler, username, password string) (string, error) {
	w := doRequest(r, http.MethodPost, "/login", "", handler.CredentialsRequest{Username: username, Password: password})

	var resp handler.LoginResult
	err := json.NewDecoder(w.Body).Decode(&resp)
	if err != nil {
		return "", fmt.Errorf("token decoding failed: %v", err)
	}
	return resp.Token, nil
}

func newCustomer(r http.Handler) (string, error) {
	payload := handler.CredentialsRequest{
		Username: "shopper-" + uuid.NewString()[:8],
		Password: "secret-password",
		Name:     "Integrated Shopper",
	}
	w := doRequest(r, http.MethodPost, "/register", "", payload)
	if w.Code != http.StatusCreated {
		return "", fmt.Errorf("register failed: %d %s", w.Code, w.Body.String())
	}
	var resp handler.RegisterResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func doRequest(r http.Handler, method, path, bearer string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createProduct(r http.Handler, p handler.ProductRequest) (handler.ProductResponse, error) {
	w := doRequest(r, http.MethodPost, "/products", token, p)
	if w.Code != http.StatusCreated {
		return handler.ProductResponse{}, fmt.Errorf("create %q: %d %s", p.Name, w.Code, w.Body.String())
	}
	var created handler.ProductResponse
	err := json.NewDecoder(w.Body).Decode(&created)
	return created, err
}

func productQuantity(id string) int {
	p, err := productRepo.GetByID(context.Background(), id)
	if err != nil {
		return -1
	}
	return p.Quantity
}
