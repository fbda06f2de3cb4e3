package security

import (
	"testing"
	"time"
)

func TestUserTokenRoundTrip(t *testing.T) {
	token, errGenerate := GenerateToken("secret", 42, "asha", "asha@example.com", time.Hour)
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}

	claims, errParse := ParseToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.UserID != 42 || claims.Username != "asha" || claims.Email != "asha@example.com" {
		t.Fatalf("claims round trip failed: %+v", claims)
	}

	if _, errWrong := ParseToken("other-secret", token); errWrong == nil {
		t.Fatal("token accepted with the wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, errGenerate := GenerateToken("secret", 42, "asha", "asha@example.com", -time.Minute)
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if _, errParse := ParseToken("secret", token); errParse == nil {
		t.Fatal("expired token accepted")
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	adminToken, errGenerate := GenerateAdminToken("secret", 7, "root", time.Hour)
	if errGenerate != nil {
		t.Fatalf("generate admin: %v", errGenerate)
	}

	claims, errParse := ParseAdminToken("secret", adminToken)
	if errParse != nil {
		t.Fatalf("parse admin: %v", errParse)
	}
	if claims.AdminID != 7 || claims.Username != "root" {
		t.Fatalf("admin claims round trip failed: %+v", claims)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, errHash := HashPassword("hunter22")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Fatal("wrong password accepted")
	}
}
