package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidate(t *testing.T) {
	svc := New("secret", "slotsrv")

	token, err := svc.Issue("player-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.PlayerID != "player-1" {
		t.Errorf("Expected player-1, got %s", claims.PlayerID)
	}
	if time.Until(claims.ExpiresAt) <= 0 {
		t.Errorf("Expected expiry in the future, got %v", claims.ExpiresAt)
	}
	if claims.Operator {
		t.Error("Expected player token without operator flag")
	}

	opToken, err := svc.IssueOperator("ops", time.Hour)
	if err != nil {
		t.Fatalf("IssueOperator failed: %v", err)
	}
	claims, err = svc.ValidateToken(opToken)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.PlayerID != "ops" || !claims.Operator {
		t.Errorf("Expected operator claims for ops, got %+v", claims)
	}
}

func TestValidateToken(t *testing.T) {
	svc := New("secret", "slotsrv")

	t.Run("Expired", func(t *testing.T) {
		past := New("secret", "slotsrv")
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _ := past.Issue("p", time.Hour)
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrTokenExpired) {
			t.Errorf("Expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, _ := New("other", "slotsrv").Issue("p", time.Hour)
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		token, _ := New("secret", "elsewhere").Issue("p", time.Hour)
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("WrongAlgorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
			Subject: "p", Issuer: "slotsrv", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, _ := token.SignedString([]byte("secret"))
		if _, err := svc.ValidateToken(signed); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("NoSubject", func(t *testing.T) {
		token, _ := svc.Issue("", time.Hour)
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrNoSubject) {
			t.Errorf("Expected ErrNoSubject, got %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := svc.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}
