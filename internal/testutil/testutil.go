package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmclain4200/approcure/internal/auth"
	"github.com/cmclain4200/approcure/internal/database"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing. The pool is
// pinned to one connection: the in-memory database lives on that connection,
// and transactions serialize the way row locks would.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { CleanupTestDB(t, db) })
	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// SetupTestStore wraps a fresh test database in a Store.
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(SetupTestDB(t), 5*time.Second)
}

// CreateTestOrg creates a test organization
func CreateTestOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:       "Test Organization",
		Slug:       "test-org-" + uuid.New().String()[:8],
		POSequence: 1000,
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	return org
}

// CreateTestUser creates a user in org holding role. A nil org creates an
// unaffiliated user with no binding.
func CreateTestUser(t *testing.T, db *gorm.DB, org *models.Organization, role rbac.OrgRole) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         "Test User",
	}
	if org != nil {
		user.OrganizationID = &org.ID
		user.Onboarded = true
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	if org != nil {
		binding := &models.OrgRoleBinding{UserID: user.ID, OrganizationID: org.ID, Role: role}
		if err := db.Create(binding).Error; err != nil {
			t.Fatalf("failed to create org role binding: %v", err)
		}
		user.Organization = org
	}

	return user
}

// CreateTestProject creates a project with the given monthly budget
func CreateTestProject(t *testing.T, db *gorm.DB, orgID uuid.UUID, budget float64) *models.Project {
	t.Helper()

	project := &models.Project{
		Base: models.Base{
			ID: uuid.New(),
		},
		OrganizationID: orgID,
		Name:           "Project " + uuid.New().String()[:6],
		JobNumber:      "J-" + uuid.New().String()[:4],
		MonthlyBudget:  budget,
		Status:         models.ProjectStatusActive,
		Phase:          models.PhaseFoundation,
	}

	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}

	return project
}

// BindProjectRole gives user role on project
func BindProjectRole(t *testing.T, db *gorm.DB, user *models.User, project *models.Project, role rbac.ProjectRole) {
	t.Helper()

	binding := &models.ProjectRoleBinding{
		UserID:         user.ID,
		ProjectID:      project.ID,
		OrganizationID: project.OrganizationID,
		Role:           role,
	}
	if err := db.Create(binding).Error; err != nil {
		t.Fatalf("failed to bind project role: %v", err)
	}
}

// CreateTestCostCode creates a cost code in org
func CreateTestCostCode(t *testing.T, db *gorm.DB, orgID uuid.UUID, code string) *models.CostCode {
	t.Helper()

	cc := &models.CostCode{OrganizationID: orgID, Code: code, Label: "Cost code " + code, Category: "materials"}
	if err := db.Create(cc).Error; err != nil {
		t.Fatalf("failed to create test cost code: %v", err)
	}
	return cc
}

// CreateTestVendor creates an active vendor in org
func CreateTestVendor(t *testing.T, db *gorm.DB, orgID uuid.UUID, name string) *models.Vendor {
	t.Helper()

	v := &models.Vendor{OrganizationID: orgID, Name: name, Active: true}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("failed to create test vendor: %v", err)
	}
	return v
}

// CreateTestRequest inserts a request directly in the given status with a
// single line item totalling amount.
func CreateTestRequest(t *testing.T, db *gorm.DB, project *models.Project, requester *models.User, status models.RequestStatus, amount float64) *models.PurchaseRequest {
	t.Helper()

	req := &models.PurchaseRequest{
		Base: models.Base{
			ID: uuid.New(),
		},
		OrganizationID: project.OrganizationID,
		PONumber:       "PO-" + uuid.New().String()[:8],
		ProjectID:      project.ID,
		RequesterID:    requester.ID,
		Vendor:         "Home Depot",
		Category:       models.CategoryMaterials,
		LineItems: []models.LineItem{
			{Name: "Lumber", Quantity: 1, Unit: "lot", EstimatedUnitCost: amount},
		},
		EstimatedTotal: amount,
		Urgency:        models.UrgencyNormal,
		NeedBy:         models.NeedByThisWeek,
		DeliveryMethod: models.DeliveryPickup,
		Status:         status,
	}

	if err := db.Create(req).Error; err != nil {
		t.Fatalf("failed to create test request: %v", err)
	}

	return req
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	Store      *store.Store
	JWTService *auth.JWTService
	Org        *models.Organization
	User       *models.User
	Token      string
}

// NewTestContext creates a complete test setup with DB, org, owner, and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	org := CreateTestOrg(t, db)
	user := CreateTestUser(t, db, org, rbac.OrgRoleOwner)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		Store:      store.New(db, 5*time.Second),
		JWTService: jwtService,
		Org:        org,
		User:       user,
		Token:      token,
	}
}
