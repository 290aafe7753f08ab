// Package state persists the install records installers keep next to what
// they installed.
//
// The FileRepository stores one record as JSON on disk, produced through
// protobuf JSON (protojson) over a structpb.Struct so the format stays a
// plain, stable JSON object.
package state
