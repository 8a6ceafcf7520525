package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldproof/internal/assignment"
	"fieldproof/internal/audit"
	auditStore "fieldproof/internal/audit/store"
	"fieldproof/internal/authz"
	"fieldproof/internal/bulk"
	docModels "fieldproof/internal/document/models"
	docStore "fieldproof/internal/document/store"
	docservice "fieldproof/internal/document/service"
	"fieldproof/internal/geocode"
	"fieldproof/internal/geofence"
	"fieldproof/internal/platform/config"
	regcodeStore "fieldproof/internal/regcode/store"
	regcodeService "fieldproof/internal/regcode/service"
	userModels "fieldproof/internal/user/models"
	userStore "fieldproof/internal/user/store"
	id "fieldproof/pkg/domain"
)

var signingKey = []byte("test-signing-key")

type fixture struct {
	router http.Handler
	docs   *docStore.InMemory
	users  *userStore.InMemory

	adminID     id.UserID
	moderatorID id.UserID
	ownerID     id.UserID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	docs := docStore.NewInMemory()
	users := userStore.NewInMemory()
	events := auditStore.NewInMemory()
	guard := authz.NewGuard()
	auditor := audit.NewRecorder(events, nil)
	resolver := geocode.NewStatic()
	resolver.Add("1 Marina Rd, Lagos, Lagos State, Nigeria",
		geocode.Result{Latitude: 6.5244, Longitude: 3.3792, Region: "Lagos"})

	f := &fixture{
		docs:        docs,
		users:       users,
		adminID:     id.NewUserID(),
		moderatorID: id.NewUserID(),
		ownerID:     id.NewUserID(),
	}

	moderator, err := userModels.NewUser(f.moderatorID, id.RoleModerator, "Lagos",
		"Bola Ade", "bola@example.com", "", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), moderator))

	f.router = NewRouter(RouterConfig{
		Documents:    docservice.New(docs, guard, geofence.New(100), auditor),
		Assignment:   assignment.New(docs, users, guard, auditor),
		Importer:     bulk.NewImporter(docs, resolver, guard, auditor, config.ImportConfig{GeocodeParallelism: 2, MaxRows: 100}),
		Exporter:     bulk.NewExporter(docs, guard),
		Registration: regcodeService.New(regcodeStore.NewInMemory(), users),

		JWTSigningKey: signingKey,
	})
	return f
}

func token(t *testing.T, userID id.UserID, role id.Role, jurisdiction string) string {
	t.Helper()
	claims := identityClaims{
		Role:         string(role),
		Jurisdiction: jurisdiction,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createDocument(t *testing.T) *docModels.Document {
	t.Helper()
	doc := docModels.New(id.NewDocumentID(), f.ownerID, time.Now())
	doc.FullName = "Ada Obi"
	doc.Address = "1 Marina Rd"
	doc.City = "Lagos"
	doc.Country = "Nigeria"
	lat, lng := 6.5244, 3.3792
	doc.Latitude, doc.Longitude = &lat, &lng
	doc.Region = "Lagos"
	require.NoError(t, f.docs.Create(context.Background(), doc))
	return doc
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetDocumentRequiresAuth(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t)

	rec := f.do(t, http.MethodGet, "/documents/"+doc.ID.String(), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/documents/"+doc.ID.String(),
		token(t, f.ownerID, id.RoleUser, ""), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, doc.ID.String(), resp.ID)
	assert.Equal(t, string(docModels.StatusPendingAssignment), resp.Status)
}

func TestAssignFlowOverHTTP(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t)
	adminToken := token(t, f.adminID, id.RoleAdmin, "")

	rec := f.do(t, http.MethodPost, "/documents/"+doc.ID.String()+"/assign", adminToken,
		assignRequest{ModeratorID: f.moderatorID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(docModels.StatusAssignedToModerator), resp.Status)
	assert.Equal(t, f.moderatorID.String(), resp.AssignedTo)

	// Assigning again conflicts.
	rec = f.do(t, http.MethodPost, "/documents/"+doc.ID.String()+"/assign", adminToken,
		assignRequest{ModeratorID: f.moderatorID.String()})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitFindingsOverHTTP(t *testing.T) {
	f := newFixture(t)
	doc := f.createDocument(t)
	adminToken := token(t, f.adminID, id.RoleAdmin, "")
	moderatorToken := token(t, f.moderatorID, id.RoleModerator, "Lagos")

	rec := f.do(t, http.MethodPost, "/documents/"+doc.ID.String()+"/assign", adminToken,
		assignRequest{ModeratorID: f.moderatorID.String()})
	require.Equal(t, http.StatusOK, rec.Code)

	// Out of range: forbidden with the geofence code in the envelope.
	rec = f.do(t, http.MethodPost, "/documents/"+doc.ID.String()+"/findings", moderatorToken,
		findingsRequest{Latitude: 6.6, Longitude: 3.4, AddressExists: true})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "geofence_violation")

	// On site: accepted.
	rec = f.do(t, http.MethodPost, "/documents/"+doc.ID.String()+"/findings", moderatorToken,
		findingsRequest{Latitude: 6.5244, Longitude: 3.3793, AddressExists: true, BuildingType: "residential"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp documentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(docModels.StatusModeratorVerified), resp.Status)

	// Finalize as admin.
	rec = f.do(t, http.MethodPost, "/documents/"+doc.ID.String()+"/finalize", adminToken,
		finalizeRequest{Approve: true, Notes: "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(docModels.StatusVerified), resp.Status)
	require.NotNil(t, resp.Decision)
	assert.Equal(t, f.adminID.String(), resp.Decision.DecidedBy)

	// History is admin-only and records the denied geofence attempt.
	rec = f.do(t, http.MethodGet, "/documents/"+doc.ID.String()+"/history", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "denied")

	rec = f.do(t, http.MethodGet, "/documents/"+doc.ID.String()+"/history", moderatorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestImportExportOverHTTP(t *testing.T) {
	f := newFixture(t)
	ownerToken := token(t, f.ownerID, id.RoleUser, "")

	csvBody := "fullName,email,phone,address,city,state,country\n" +
		"Ada Obi,ada@example.com,+2348000000001,1 Marina Rd,Lagos,Lagos State,Nigeria\n" +
		"Bola Ade,bola@example.com,,,Lagos,Lagos State,Nigeria\n"

	rec := f.do(t, http.MethodPost, "/documents/import", ownerToken, csvBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report bulk.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 2, report.Failed[0].RowIndex)

	rec = f.do(t, http.MethodGet, "/documents/export?filter=all", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 2, "header plus the one imported document")

	// Moderators may not export.
	rec = f.do(t, http.MethodGet, "/documents/export",
		token(t, f.moderatorID, id.RoleModerator, "Lagos"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegistrationOverHTTP(t *testing.T) {
	f := newFixture(t)
	adminToken := token(t, f.adminID, id.RoleAdmin, "")

	rec := f.do(t, http.MethodPost, "/admin/codes", adminToken, issueCodeRequest{
		Role: "user", FullName: "Chi Eze", Email: "chi@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var code codeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &code))
	require.NotEmpty(t, code.Code)

	// Registration itself needs no token.
	rec = f.do(t, http.MethodPost, "/register", "", registerRequest{Code: code.Code})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var account accountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, "user", account.Role)
	assert.Equal(t, "chi@example.com", account.Email)

	// The same code cannot admit a second account.
	rec = f.do(t, http.MethodPost, "/register", "", registerRequest{Code: code.Code})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Non-admins cannot issue codes.
	rec = f.do(t, http.MethodPost, "/admin/codes",
		token(t, f.ownerID, id.RoleUser, ""), issueCodeRequest{Role: "user", FullName: "X", Email: "x@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInvalidDocumentID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/documents/not-a-uuid",
		token(t, f.adminID, id.RoleAdmin, ""), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

