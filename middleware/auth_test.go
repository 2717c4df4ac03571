package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

func authRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", Auth(testSecret))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/whoami", func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID, "role": p.Role, "store_id": p.StoreID})
	})
	return router
}

func TestAuth_ValidToken(t *testing.T) {
	token, err := GenerateToken(testSecret, Principal{UserID: 7, Role: RoleAdmin, StoreID: 3}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{`"user_id":7`, `"role":"admin"`, `"store_id":3`} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected response to contain %s, got %s", want, body)
		}
	}
}

func TestAuth_MissingToken(t *testing.T) {
	req, _ := http.NewRequest("GET", "/whoami", nil)
	w := httptest.NewRecorder()
	authRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	token, _ := GenerateToken("wrong-secret", Principal{UserID: 7, Role: RoleCustomer}, time.Hour)

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	token, _ := GenerateToken(testSecret, Principal{UserID: 7, Role: RoleCustomer}, -time.Minute)

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	token, _ := GenerateToken(testSecret, Principal{UserID: 7, Role: RoleCustomer}, time.Hour)

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter(RoleAdmin).ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestRequireRole_Allowed(t *testing.T) {
	token, _ := GenerateToken(testSecret, Principal{UserID: 1, Role: RoleAdmin, StoreID: 1}, time.Hour)

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter(RoleAdmin).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
