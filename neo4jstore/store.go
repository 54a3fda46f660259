package neo4jstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/danielorbach/go-component"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-digitaltwin/hydrotwin"
)

// Store is a hydrotwin.Store backed by a Neo4j database.
//
// Every operation runs in its own managed transaction, so saving a model
// replaces the previous one atomically. Loads exclude concurrent writes of the
// same Store (see graphWRMutex), so they observe either the old model or the
// new one.
type Store struct {
	driver   neo4j.DriverWithContext // Connection to the neo4j server/cluster.
	database string                  // Target database, bootstrapped by BootstrapDatabase.
	lock     graphWRMutex
}

var _ hydrotwin.Store = (*Store)(nil)

// NewStore returns a Store using the given database. The database must have
// been bootstrapped with BootstrapDatabase.
func NewStore(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{driver: driver, database: database}
}

// SaveModel stores m under name, replacing any model already saved there.
func (s *Store) SaveModel(ctx context.Context, name string, m *hydrotwin.Model) error {
	ctx, span := tracer.Start(ctx, "Store.SaveModel", trace.WithAttributes(
		attribute.String("neo4j.database", s.database),
		attribute.String("network", name),
		attribute.Int("features", len(m.Features)),
	))
	defer span.End()

	fingerprint, err := hydrotwin.Fingerprint(m)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("fingerprint: %w", err)
	}
	payload, err := encodePayload(m)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	features, links, err := encodeFeatures(m.Features)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	start := time.Now()
	err = s.write(ctx, func(tx neo4j.ManagedTransaction) error {
		if err := deleteNetwork(ctx, tx, name); err != nil {
			return err
		}
		_, err := tx.Run(ctx, `
			CREATE (:Network {name: $name, payload: $payload, fingerprint: $fingerprint})
		`, map[string]any{
			"name":        name,
			"payload":     payload,
			"fingerprint": fingerprint.String(),
		})
		if err != nil {
			return fmt.Errorf("create network: %w", err)
		}
		_, err = tx.Run(ctx, `
			MATCH (n:Network {name: $name})
			UNWIND $features AS feature
			CREATE (n)-[:CONTAINS]->(:Feature {
				network: $name,
				id: feature.id,
				table: feature.table,
				position: feature.position,
				document: feature.document
			})
		`, map[string]any{
			"name":     name,
			"features": features,
		})
		if err != nil {
			return fmt.Errorf("create features: %w", err)
		}
		// Links whose ends are missing from the model are stored as features only.
		_, err = tx.Run(ctx, `
			UNWIND $links AS link
			MATCH (us:Feature {network: $name, id: link.us})
			MATCH (ds:Feature {network: $name, id: link.ds})
			CREATE (us)-[:LINKS {id: link.id, table: link.table}]->(ds)
		`, map[string]any{
			"name":  name,
			"links": links,
		})
		if err != nil {
			return fmt.Errorf("create links: %w", err)
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	measureSave(ctx, len(m.Features), time.Since(start))
	component.Logger(ctx).Debug("Model saved",
		"neo4j.database", s.database,
		"network", name,
		"model", fingerprint.String(),
	)
	return nil
}

// LoadModel returns the model saved under name, or hydrotwin.ErrModelNotFound.
func (s *Store) LoadModel(ctx context.Context, name string) (*hydrotwin.Model, error) {
	ctx, span := tracer.Start(ctx, "Store.LoadModel", trace.WithAttributes(
		attribute.String("neo4j.database", s.database),
		attribute.String("network", name),
	))
	defer span.End()

	s.lock.Lock()
	defer s.lock.Unlock()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: neo4j.AccessModeRead})
	defer func() { _ = session.Close(ctx) }()

	var (
		payload   string
		documents []string
	)
	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (n:Network {name: $name})
			RETURN n.payload AS payload
		`, map[string]any{"name": name})
		if err != nil {
			return nil, fmt.Errorf("match network: %w", err)
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect network: %w", err)
		}
		if len(records) == 0 {
			return nil, hydrotwin.ErrModelNotFound
		}
		if payload, err = getRecordProperty[string](records[0], "payload"); err != nil {
			return nil, fmt.Errorf("network payload: %w", err)
		}

		result, err = tx.Run(ctx, `
			MATCH (:Network {name: $name})-[:CONTAINS]->(f:Feature)
			RETURN f.document AS document
			ORDER BY f.position
		`, map[string]any{"name": name})
		if err != nil {
			return nil, fmt.Errorf("match features: %w", err)
		}
		// Reset in case the transaction function is retried.
		documents = documents[:0]
		for result.Next(ctx) {
			doc, err := getRecordProperty[string](result.Record(), "document")
			if err != nil {
				return nil, fmt.Errorf("feature document: %w", err)
			}
			documents = append(documents, doc)
		}
		// Neo4j's result cursor is exhausted by now. We check its Err method to get the
		// error that caused the iteration to stop, if any.
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("iterate features: %w", err)
		}
		return nil, nil
	})
	if errors.Is(err, hydrotwin.ErrModelNotFound) {
		return nil, fmt.Errorf("load %q: %w", name, hydrotwin.ErrModelNotFound)
	} else if err != nil {
		err = fmt.Errorf("neo4j execute: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	m, err := decodeModel(payload, documents)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return m, nil
}

// DeleteModel removes the model saved under name. Deleting a name that holds
// no model returns hydrotwin.ErrModelNotFound.
func (s *Store) DeleteModel(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "Store.DeleteModel", trace.WithAttributes(
		attribute.String("neo4j.database", s.database),
		attribute.String("network", name),
	))
	defer span.End()

	var deleted int64
	err := s.write(ctx, func(tx neo4j.ManagedTransaction) error {
		result, err := tx.Run(ctx, `
			MATCH (n:Network {name: $name})
			RETURN count(n) AS count
		`, map[string]any{"name": name})
		if err != nil {
			return fmt.Errorf("match network: %w", err)
		}
		record, err := result.Single(ctx)
		if err != nil {
			return fmt.Errorf("query single result: %w", err)
		}
		if deleted, err = getRecordProperty[int64](record, "count"); err != nil {
			return fmt.Errorf("count networks: %w", err)
		}
		return deleteNetwork(ctx, tx, name)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("delete %q: %w", name, hydrotwin.ErrModelNotFound)
	}
	return nil
}

// write runs work in a managed write transaction, which the driver retries on
// transient failures.
func (s *Store) write(ctx context.Context, work func(tx neo4j.ManagedTransaction) error) error {
	s.lock.WLock()
	defer s.lock.WUnlock()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(ctx); err != nil {
			component.Logger(ctx).Error("Failed to close neo4j session", "error", err)
		}
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, work(tx)
	})
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	} else if errors.Is(err, errPropertyNotFound) || errors.As(err, &unexpectedPropertyTypeError{}) {
		component.Logger(ctx).Error("A Cypher query was modified without care", "error", err)
		panic(fmt.Errorf("seek developer attention: neo4j cypher query: %w", err))
	} else if err != nil {
		return fmt.Errorf("neo4j execute: %w", err)
	}
	return nil
}

func deleteNetwork(ctx context.Context, tx neo4j.ManagedTransaction, name string) error {
	_, err := tx.Run(ctx, `
		MATCH (n:Network {name: $name})
		OPTIONAL MATCH (n)-[:CONTAINS]->(f:Feature)
		DETACH DELETE n, f
	`, map[string]any{"name": name})
	if err != nil {
		return fmt.Errorf("delete network: %w", err)
	}
	return nil
}

// encodePayload returns the JSON document of m without its features, which
// are stored as nodes of their own.
func encodePayload(m *hydrotwin.Model) (string, error) {
	bare := *m
	bare.Features = nil
	b, err := json.Marshal(&bare)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

// encodeFeatures returns the query parameters describing every feature, and
// every pipe-like feature as a link between its ends.
func encodeFeatures(features []hydrotwin.Feature) (nodes, links []any, err error) {
	nodes = make([]any, 0, len(features))
	for i, f := range features {
		doc, err := json.Marshal(f)
		if err != nil {
			return nil, nil, fmt.Errorf("encode feature %q: %w", f.ID(), err)
		}
		nodes = append(nodes, map[string]any{
			"id":       f.ID(),
			"table":    f.Table(),
			"position": int64(i),
			"document": string(doc),
		})
		if !f.IsLink() {
			continue
		}
		if us, ds := f.Ends(); us != "" && ds != "" {
			links = append(links, map[string]any{
				"id":    f.ID(),
				"table": f.Table(),
				"us":    us,
				"ds":    ds,
			})
		}
	}
	if links == nil {
		links = []any{}
	}
	return nodes, links, nil
}

func decodeModel(payload string, documents []string) (*hydrotwin.Model, error) {
	var m hydrotwin.Model
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	m.Features = make([]hydrotwin.Feature, len(documents))
	for i, doc := range documents {
		if err := json.Unmarshal([]byte(doc), &m.Features[i]); err != nil {
			return nil, fmt.Errorf("decode feature at %d: %w", i, err)
		}
	}
	return &m, nil
}

// A errPropertyNotFound occurs when a column of a record is missing.
//
// When encountering this error, it most likely occurs when changing a Cypher
// query without modifying the surrounding code properly. Expect a panic
// eventually.
var errPropertyNotFound = errors.New("property not found")

// An unexpectedPropertyTypeError occurs when a column of a record has a
// runtime type that is different from the expected type.
type unexpectedPropertyTypeError struct {
	Type reflect.Type
}

func (e unexpectedPropertyTypeError) Error() string {
	return fmt.Sprintf("unexpected property type %v", e.Type)
}

// The recordProperty interface lists the column types read by this package.
type recordProperty interface {
	int64 | string
}

func getRecordProperty[T recordProperty](record *neo4j.Record, key string) (value T, err error) {
	prop, exists := record.Get(key)
	if !exists {
		return value, errPropertyNotFound
	}
	v, ok := prop.(T)
	if !ok {
		return value, unexpectedPropertyTypeError{Type: reflect.TypeOf(prop)}
	}
	return v, nil
}
