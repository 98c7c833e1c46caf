// Package robots implements the politeness gate: a per-domain, per-run
// robots.txt decision cache that only honors a full-site disallow.
package robots
