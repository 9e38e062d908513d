package handlers_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/accesscode"
	"github.com/cmclain4200/approcure/internal/api"
	"github.com/cmclain4200/approcure/internal/auth"
	"github.com/cmclain4200/approcure/internal/budget"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/cmclain4200/approcure/internal/membership"
	"github.com/cmclain4200/approcure/internal/projects"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/requests"
	"github.com/cmclain4200/approcure/internal/testutil"
	"github.com/stretchr/testify/require"
)

// testAPI is the full router wired against an in-memory store.
type testAPI struct {
	*testutil.TestSetup
	Router http.Handler
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	tc := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	projectService := projects.NewService(tc.Store, logger)
	router := api.NewRouter(api.RouterConfig{
		DB:             tc.DB,
		Logger:         logger,
		Tokens:         tc.JWTService,
		AuthService:    auth.NewService(tc.Store, tc.JWTService),
		Resolver:       access.NewResolver(tc.Store),
		AccessCodes:    accesscode.NewService(tc.Store, events.Nop{}, logger),
		Requests:       requests.NewManager(tc.Store, events.Nop{}, logger),
		Budget:         budget.NewService(tc.Store),
		Projects:       projectService,
		Members:        membership.NewService(tc.Store, logger),
		ClaimLimitReqs: 100,
		RateLimitSecs:  60,
	})

	return &testAPI{TestSetup: tc, Router: router}
}

// do sends an authenticated request and returns the recorded response.
func (a *testAPI) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, method, path, body, token))
	return rr
}

// member creates a user in the test organization and returns them with a token.
func (a *testAPI) member(t *testing.T, role rbac.OrgRole) (*models.User, string) {
	t.Helper()
	user := testutil.CreateTestUser(t, a.DB, a.Org, role)
	return user, testutil.GenerateTestToken(t, a.JWTService, user)
}

// createProject creates a project through the API as the owner, which binds
// the owner as the project's admin.
func (a *testAPI) createProject(t *testing.T, budget float64) models.Project {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/api/v1/projects", map[string]interface{}{
		"name":           "Riverside Duplex",
		"job_number":     "J-2041",
		"monthly_budget": budget,
	}, a.Token)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var project models.Project
	testutil.ParseJSONResponse(t, rr, &project)
	require.NotEmpty(t, project.ID)
	return project
}

func requestBody(projectID string, unitCost float64, submit bool) map[string]interface{} {
	return map[string]interface{}{
		"project_id":      projectID,
		"vendor":          "Home Depot",
		"category":        "materials",
		"need_by":         "this-week",
		"delivery_method": "pickup",
		"submit":          submit,
		"line_items": []map[string]interface{}{
			{"name": "2x4 stud", "quantity": 10, "unit": "ea", "estimated_unit_cost": unitCost},
		},
	}
}

// createRequest creates a request as token and returns it.
func (a *testAPI) createRequest(t *testing.T, projectID string, unitCost float64, submit bool, token string) models.PurchaseRequest {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/api/v1/requests", requestBody(projectID, unitCost, submit), token)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var req models.PurchaseRequest
	testutil.ParseJSONResponse(t, rr, &req)
	return req
}
