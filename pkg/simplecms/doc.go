// Package simplecms provides a versioned content backend for pages, sections,
// modules and publications with pluggable repository and cache backends.
//
// Every entity is addressed by a logical id shared by all of its versions;
// each version is a separate instance with its own id. Versions are append-only:
// an edit creates the next version as a DRAFT and leaves earlier versions
// untouched. Only status moves in place, along the publishing state machine
// DRAFT -> PUBLISHED -> ARCHIVED, with DELETED reachable from every live state.
// Publishing a version archives any previously published version of the same
// logical id in the same atomic step.
//
// Contents attach to the logical id of a module or publication, so they are
// shared by every version of their owner.
//
// Repositories (memory, Postgres) and tree caches (memory, Redis) are provided
// under subpackages.
package simplecms
