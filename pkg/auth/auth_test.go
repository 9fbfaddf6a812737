package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	SetSigningKey([]byte("test-secret"))

	token, err := GenerateToken(42, "ada", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Subject() != "42" {
		t.Fatalf("Subject() = %q, want %q", claims.Subject(), "42")
	}
	if !claims.IsAdmin() {
		t.Fatalf("IsAdmin() = false, want true")
	}
}

func TestValidateToken_RejectsWrongKey(t *testing.T) {
	SetSigningKey([]byte("key-one"))
	token, err := GenerateToken(1, "bob", RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	SetSigningKey([]byte("key-two"))
	if _, err := ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ValidateToken error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	SetSigningKey([]byte("test-secret"))
	prev := TokenTTL
	TokenTTL = -time.Minute
	defer func() { TokenTTL = prev }()

	token, err := GenerateToken(1, "bob", RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if _, err := ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ValidateToken error = %v, want ErrInvalidToken", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{header: "Bearer abc.def", want: "abc.def"},
		{header: "", wantErr: ErrMissingToken},
		{header: "Basic abc", wantErr: ErrInvalidToken},
		{header: "Bearer ", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("BearerToken(%q) error = %v, want %v", tt.header, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("BearerToken(%q) returned error: %v", tt.header, err)
		}
		if got != tt.want {
			t.Fatalf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Fatalf("CheckPassword rejected the right password")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("CheckPassword accepted the wrong password")
	}
}
