package neo4jstore

import (
	"context"
	"testing"

	"github.com/go-digitaltwin/hydrotwin/internal/dbtest"
	"github.com/go-digitaltwin/hydrotwin/storetest"
)

func TestStore(t *testing.T) {
	driver := dbtest.SetupNeo4j(t)
	if err := BootstrapDatabase(context.Background(), driver, "neo4j"); err != nil {
		t.Fatal(err)
	}
	storetest.Run(t, NewStore(driver, "neo4j"))
}
