// Package mediasync reconciles a media directory tree against the asset
// database.
//
// A Synchronizer walks the media directory, keeps the files accepted by an
// EligibilityFilter and passes each one to every FilesSynchronizer in a Pool.
// A failing file does not stop the run: failures are logged, collected and
// returned together as a *mediacontent.SyncRunError once every file has been
// attempted.
package mediasync
