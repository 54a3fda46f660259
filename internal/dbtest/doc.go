/*
Package dbtest spins up a Neo4j container for tests of the model stores. It
wraps the testcontainers-go neo4j module with the defaults our stores assume:
an enterprise image (node key constraints) without authentication.

Tests that need a differently configured server should use the
testcontainers-go modules directly.

Developing locally with Docker, you may want to manually inspect the stored
networks after a test failure. To do this, set the Inspect flag to true:

	go test -dbtest.inspect

A different image can be tried without editing the code:

	go test -dbtest.neo4j-image=docker.io/neo4j:5.26-enterprise

This package is intended to be used in tests only.
*/
package dbtest
