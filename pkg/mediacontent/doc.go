// Package mediacontent keeps track of which media assets are referenced by
// free-text content fields and reconciles a media directory tree against the
// asset database.
//
// Two engines live here and in the mediasync subpackage:
//
// The Reconciler receives the changed fields of one content entity (a product
// description, a category text, a CMS block) and brings the stored relation
// set for each field in line with the assets referenced by the new content.
// It only issues the assign/unassign calls needed to close the difference, so
// calling it again with the same content is a no-op.
//
// The mediasync.Synchronizer walks a media directory, filters eligible image
// files and hands each one to a pool of file synchronizers, collecting
// per-file failures into one error at the end of the run.
//
// Repositories (memory, Postgres, SQLite) and media directories (local
// filesystem, S3) are provided under subpackages.
package mediacontent
