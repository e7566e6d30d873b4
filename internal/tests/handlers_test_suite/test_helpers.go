package handlers_test_suite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/rogerio-castellano/shopnesty/internal/alerts"
	api "github.com/rogerio-castellano/shopnesty/internal/http"
	handler "github.com/rogerio-castellano/shopnesty/internal/http/handlers"
	mw "github.com/rogerio-castellano/shopnesty/internal/http/middleware"
	rl "github.com/rogerio-castellano/shopnesty/internal/http/rate_limiter"
	"github.com/rogerio-castellano/shopnesty/internal/idempotency"
	"github.com/rogerio-castellano/shopnesty/internal/metrics"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/reconcile"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"github.com/rogerio-castellano/shopnesty/internal/report"
	"golang.org/x/crypto/bcrypt"
)

var (
	token           string
	store           *repo.InMemoryDB
	productRepo     *repo.InMemoryProductRepository
	movementRepo    *repo.InMemoryMovementRepository
	transactionRepo *repo.InMemoryTransactionRepository
	alertLog        *alerts.MemoryLog
	registry        *metrics.Registry
	engine          *reconcile.Engine

	customerSeq atomic.Int64
)

func init() {
	setupTestRepos("secret")
	r := api.NewRouter()

	var err error
	token, err = generateToken(r, "admin", "secret")
	if err != nil {
		panic(fmt.Sprintf("error generating token: %v", err))
	}
}

func setupTestRepos(password string) {
	rl.Configure(1000, 1000)

	store = repo.NewInMemoryDB()

	productRepo = repo.NewInMemoryProductRepository(store)
	handler.SetProductRepo(productRepo)

	movementRepo = repo.NewInMemoryMovementRepository(store)
	handler.SetMovementRepo(movementRepo)

	transactionRepo = repo.NewInMemoryTransactionRepository(store)
	handler.SetTransactionRepo(transactionRepo)

	userRepo := repo.NewInMemoryUserRepository(store)
	handler.SetUserRepo(userRepo)

	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	userRepo.CreateUser(context.Background(), models.User{
		Username:     "admin",
		Name:         "Admin",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	})

	registry = metrics.NewRegistry()
	mw.SetMetrics(registry)

	alertLog = alerts.NewMemoryLog(100)
	handler.SetAlertLog(alertLog)
	handler.SetIdempotencyStore(idempotency.NewMemoryStore(idempotency.DefaultTTL))

	engine = reconcile.New(store,
		reconcile.WithObserver(registry),
		reconcile.WithStockObserver(alerts.NewWatcher(alertLog, nil, registry.LowStock)),
	)
	handler.SetEngine(engine)
	handler.SetReportService(report.NewService(productRepo, transactionRepo, movementRepo))
}

func clearAllProducts() {
	productRepo.Clear()
}

func generateToken(r http.Handler, username, password string) (string, error) {
	payload := handler.CredentialsRequest{Username: username, Password: password}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp handler.LoginResult
	err := json.NewDecoder(w.Body).Decode(&resp)
	if err != nil {
		return "", fmt.Errorf("token decoding failed: %v", err)
	}
	return resp.Token, nil
}

// newCustomer registers a fresh customer so every test starts with an
// empty cart, and returns its token.
func newCustomer(r http.Handler) (string, error) {
	n := customerSeq.Add(1)
	payload := handler.CredentialsRequest{
		Username: fmt.Sprintf("shopper%03d", n),
		Password: "secret-password",
		Name:     fmt.Sprintf("Shopper %d", n),
	}
	w := doRequest(r, http.MethodPost, "/register", "", payload)
	if w.Code != http.StatusCreated {
		return "", fmt.Errorf("register failed: %d %s", w.Code, w.Body.String())
	}
	var resp handler.RegisterResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("register decoding failed: %v", err)
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

func createProduct(r http.Handler, p handler.ProductRequest) *httptest.ResponseRecorder {
	return doRequest(r, http.MethodPost, "/products", token, p)
}

func mustCreateProduct(r http.Handler, p handler.ProductRequest) (handler.ProductResponse, error) {
	w := createProduct(r, p)
	if w.Code != http.StatusCreated {
		return handler.ProductResponse{}, fmt.Errorf("create %q: %d %s", p.Name, w.Code, w.Body.String())
	}
	var created handler.ProductResponse
	err := json.NewDecoder(w.Body).Decode(&created)
	return created, err
}

func adjustProduct(r http.Handler, productID string, adj handler.QuantityAdjustmentRequest) *httptest.ResponseRecorder {
	return doRequest(r, http.MethodPost, fmt.Sprintf("/products/%s/adjust", productID), token, adj)
}

func productQuantity(id string) int {
	p, err := productRepo.GetByID(context.Background(), id)
	if err != nil {
		return -1
	}
	return p.Quantity
}

func addToCart(r http.Handler, bearer, productID string) *httptest.ResponseRecorder {
	return doRequest(r, http.MethodPost, "/cart/items", bearer, handler.AddToCartRequest{ProductID: productID})
}

func getCart(r http.Handler, bearer string) (reconcile.CartView, error) {
	w := doRequest(r, http.MethodGet, "/cart", bearer, nil)
	if w.Code != http.StatusOK {
		return reconcile.CartView{}, fmt.Errorf("get cart: %d", w.Code)
	}
	var view reconcile.CartView
	err := json.NewDecoder(w.Body).Decode(&view)
	return view, err
}

func multipartCSV(csvContent string, filename string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, _ := writer.CreateFormFile("file", filename)
	part.Write([]byte(csvContent))

	writer.Close()
	return &buf, writer.FormDataContentType()
}

func addMovement(movement models.Movement) {
	movementRepo.AddMovement(movement)
}
