// Package storage defines the object store behind the response cache and
// a registry of backends.
//
// Two backends exist: storage/local (one file per object, written with
// temp file plus rename) and storage/redis (one key per object). Import a
// backend package for its side effect to register it with New.
package storage
