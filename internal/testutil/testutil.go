package testutil

import (
	"database/sql"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"

	"pharmacyMarketplace/internal/db"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The shared cache keeps all connections of the pool on the same database.
// Caller cleanup is registered automatically.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// BearerToken returns a signed JWT string with the minimal claims the HTTP
// layer expects (subject user id and role).
func BearerToken(t *testing.T, secret string, userID int64, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}
