package artifactstore_test

import (
	"testing"

	"github.com/specialistvlad/nodegraph/internal/artifactstore"
	"github.com/specialistvlad/nodegraph/internal/artifactstore/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(*testing.T) artifactstore.Store { return artifactstore.NewMemory() })
}
