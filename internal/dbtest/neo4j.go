package dbtest

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/testcontainers/testcontainers-go"
	neo4jtest "github.com/testcontainers/testcontainers-go/modules/neo4j"
)

// Neo4jImage is the default image of the Neo4j container. Node key
// constraints, which neo4jstore.BootstrapDatabase creates, need the enterprise
// edition.
//
// Other tags are listed at <https://hub.docker.com/_/neo4j>.
const Neo4jImage = "docker.io/neo4j:5-enterprise"

// neo4jHTTP serves the Neo4j browser.
const neo4jHTTP = nat.Port("7474/tcp")

// SetupNeo4j starts a Neo4j container without authentication and returns a
// driver connected to it. Customizers are applied after those defaults.
//
// The test is skipped under -short and otherwise marked parallel. The driver
// and the container are released when the test ends, unless the test failed
// and the Inspect flag is set.
//
// The server starts empty; bootstrapping a network database is up to the
// test.
func SetupNeo4j(t *testing.T, customizers ...testcontainers.ContainerCustomizer) neo4j.DriverWithContext {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Neo4j container test in short mode")
	}
	t.Parallel()

	ctx := context.Background()
	container := startNeo4j(t, ctx, customizers)

	boltURL, err := container.BoltUrl(ctx)
	if err != nil {
		t.Fatal("Neo4j bolt url:", err)
	}
	driver, err := neo4j.NewDriverWithContext(boltURL, neo4j.NoAuth())
	if err != nil {
		t.Fatal("Neo4j driver:", err)
	}
	t.Cleanup(func() {
		if err := driver.Close(ctx); err != nil {
			t.Error("Close Neo4j driver:", err)
		}
	})
	if err := awaitConnectivity(t, ctx, driver); err != nil {
		t.Fatalf("Neo4j at %s never became reachable: %v", boltURL, err)
	}

	// Registered last so it runs first, while the container is still up.
	t.Cleanup(func() {
		if !t.Failed() || !*Inspect {
			return
		}
		browser, err := container.PortEndpoint(ctx, neo4jHTTP, "http")
		if err != nil {
			t.Log("Neo4j browser endpoint:", err)
		}
		t.Logf("Keeping container %s for inspection; press Ctrl+C when done", container.GetContainerID())
		t.Logf("Browser: %s/browser?preselectAuthMethod=%s&dbms=%s", browser, url.QueryEscape("[NO_AUTH]"), url.QueryEscape(boltURL))
		waitForInspection()
	})
	return driver
}

// startNeo4j runs the container and terminates it when the test ends.
func startNeo4j(t *testing.T, ctx context.Context, customizers []testcontainers.ContainerCustomizer) *neo4jtest.Neo4jContainer {
	t.Helper()
	defaults := []testcontainers.ContainerCustomizer{
		neo4jtest.WithoutAuthentication(),
		neo4jtest.WithAcceptCommercialLicenseAgreement(),
	}
	container, err := neo4jtest.Run(ctx, *Image, containerOptions(t, append(defaults, customizers...)...)...)
	if err != nil {
		t.Fatal("Run Neo4j container:", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("Terminate container %s: %v", container.GetContainerID(), err)
		}
	})
	return container
}

// awaitConnectivity verifies the driver can reach the server, retrying a few
// times since the container may report ready before Bolt accepts sessions.
func awaitConnectivity(t *testing.T, ctx context.Context, driver neo4j.DriverWithContext) error {
	t.Helper()
	const (
		attempts = 6
		pause    = 100 * time.Millisecond
	)
	var err error
	for i := range attempts {
		if i > 0 {
			t.Logf("Neo4j not reachable yet (attempt %d/%d): %v", i, attempts, err)
			select {
			case <-time.After(pause):
			case <-ctx.Done():
				return fmt.Errorf("await connectivity: %w", ctx.Err())
			}
		}
		if err = driver.VerifyConnectivity(ctx); err == nil {
			return nil
		}
	}
	return err
}
