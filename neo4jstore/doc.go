/*
Package neo4jstore persists hydraulic models in a Neo4j database.

Each model is stored under a name as a single (:Network) node holding the
model payload, and one (:Feature) node per feature linked to it by a CONTAINS
relationship. Pipe-like features are additionally materialised as LINKS
relationships between the features at their ends, so the stored network can be
explored with plain Cypher:

	MATCH p = (:Feature {network: 'north', id: 'R1'})-[:LINKS*..5]->(f:Feature)
	RETURN p

Call [BootstrapDatabase] once before using a database with a [Store].
*/
package neo4jstore
