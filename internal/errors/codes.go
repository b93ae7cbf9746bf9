package errors

// Error codes for FolioDB. Every error returned across a package boundary
// carries exactly one of these.
const (
	// NotAccessible means the database file or its lock file cannot be
	// created or opened.
	NotAccessible = "FDB_NOT_ACCESSIBLE"

	// InvalidFileStructure means the file is shorter than expected or the
	// version prefix is unreadable or unknown.
	InvalidFileStructure = "FDB_INVALID_FILE_STRUCTURE"

	// InvalidPage means a page failed structural validation.
	InvalidPage = "FDB_INVALID_PAGE"

	// InvalidDocument means a referenced document is truncated or fails
	// codec-level validation.
	InvalidDocument = "FDB_INVALID_DOCUMENT"

	// InvalidDocumentReference means a slot offset lies outside its
	// containing page.
	InvalidDocumentReference = "FDB_INVALID_DOCUMENT_REFERENCE"

	// InvalidConfig means a configuration value failed validation.
	InvalidConfig = "FDB_INVALID_CONFIG"

	// DatabaseClosed means an operation was attempted on a closed database.
	DatabaseClosed = "FDB_DATABASE_CLOSED"

	// CollectionNotFound means no collection with the requested name is
	// registered in the master chain.
	CollectionNotFound = "FDB_COLLECTION_NOT_FOUND"
)
