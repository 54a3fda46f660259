package neo4jstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// constraints lists the schema statements BootstrapDatabase runs. Node keys
// are an enterprise edition feature.
var constraints = []string{
	`CREATE CONSTRAINT network_name IF NOT EXISTS
	 FOR (n:Network)
	 REQUIRE n.name IS NODE KEY`,
	`CREATE CONSTRAINT feature_position IF NOT EXISTS
	 FOR (f:Feature)
	 REQUIRE (f.network, f.position) IS NODE KEY`,
	`CREATE INDEX feature_id IF NOT EXISTS
	 FOR (f:Feature)
	 ON (f.network, f.id)`,
}

// BootstrapDatabase creates the named database, if it does not exist yet, and
// the constraints and indexes a Store relies on.
//
// The default "neo4j" database is used as is; it cannot be created but its
// schema is still bootstrapped.
//
// To execute queries against the created database, open a session with the
// database name as the default database. For example:
//
//	s := d.NewSession(ctx, neo4j.SessionConfig{DatabaseName: name})
//	defer func() { _ = s.Close(ctx) }()
//	... use s ...
//
// This function is idempotent.
func BootstrapDatabase(ctx context.Context, d neo4j.DriverWithContext, name string) error {
	if name != defaultDatabase {
		if err := createDatabase(ctx, d, name); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
	}

	s := d.NewSession(ctx, neo4j.SessionConfig{DatabaseName: name})
	defer func() { _ = s.Close(ctx) }()

	_, err := s.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, q := range constraints {
			if _, err := tx.Run(ctx, q, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("create constraints: %w", err)
	}
	return s.Close(ctx)
}

const defaultDatabase = "neo4j"

func createDatabase(ctx context.Context, d neo4j.DriverWithContext, name string) error {
	if name == "" {
		panic("neo4jstore: database name must not be empty")
	}
	if strings.HasPrefix(name, "system") || strings.HasPrefix(name, "_") {
		panic("neo4jstore: Names that begin with an underscore and with the prefix system are reserved for internal use")
	}

	s := d.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = s.Close(ctx) }()

	_, err := s.Run(ctx, `
			CREATE DATABASE $name IF NOT EXISTS WAIT
		`, map[string]any{
		"name": name,
	})
	return err
}
