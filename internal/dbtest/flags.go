package dbtest

import (
	"flag"
	"os"
	"os/signal"
)

// Inspect keeps the container of a failed test running until Ctrl+C, so the
// stored networks can be browsed. The testcontainers reaper still removes it
// eventually.
var Inspect = flag.Bool("dbtest.inspect", false, "keep the neo4j container of a failed test running for inspection")

// Image overrides the image of the Neo4j container.
var Image = flag.String("dbtest.neo4j-image", Neo4jImage, "image of the neo4j test container")

// waitForInspection blocks until SIGINT.
func waitForInspection() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)
	<-c
}
