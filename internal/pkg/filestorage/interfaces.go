package filestorage

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveBytes writes data under the given file name and returns its public path
	SaveBytes(filename string, data []byte) (string, error)

	// DeleteFile removes a file given its public path
	DeleteFile(publicPath string) error

	// GetFullPath returns the full filesystem path for a given public path
	GetFullPath(publicPath string) string

	// ListFiles returns the bare names of all stored files
	ListFiles() ([]string, error)

	// ReadHead returns up to n leading bytes of a stored file
	ReadHead(filename string, n int) ([]byte, error)

	// Rename moves a stored file and returns its new public path
	Rename(oldName, newName string) (string, error)

	// PublicPath returns the public path of a bare file name
	PublicPath(filename string) string
}
