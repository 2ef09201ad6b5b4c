package firestorerepos_test

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/storage/database/firestore"
	"github.com/trezcool/backoffice/storage/database/repotest"
)

// Runs against the Firestore emulator: FIRESTORE_EMULATOR_HOST=localhost:8080 go test ./...
func TestApplicationRepository(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set")
	}

	client, err := firestore.NewClient(context.Background(), "backoffice-test")
	if err != nil {
		t.Fatalf("firestore.NewClient() failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	repotest.Run(t, func(t *testing.T) admission.Repository {
		// a fresh collection per test keeps them independent
		return firestorerepos.NewApplicationRepository(client, "applications-"+uuid.New().String())
	})
}
