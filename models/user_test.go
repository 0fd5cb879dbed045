package models_test

import (
	"context"
	"testing"

	"github.com/bakeledger/prodcost_backend/models"
)

func TestAuthenticateUser(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	_, err := models.CreateUser(ctx, &models.NewUser{Username: "baker", Password: "s3cret"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := models.AuthenticateUser(ctx, "baker", "s3cret")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}

	if _, err := models.AuthenticateUser(ctx, "baker", "wrong"); err == nil {
		t.Fatal("expected failure for wrong password")
	}
	if _, err := models.AuthenticateUser(ctx, "nobody", "s3cret"); err == nil {
		t.Fatal("expected failure for unknown user")
	}
}
