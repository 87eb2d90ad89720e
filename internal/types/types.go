package types

// EntryFile is a file queued for hashing
type EntryFile struct {
	Path   string
	Length int64
	Offset int64
}

// FileDigest is the outcome of hashing one file
type FileDigest struct {
	Path   string
	Digest string
	Size   int64
	Err    error
}

// ChecksumSummary contains the outcome of checking a checksum list
type ChecksumSummary struct {
	Total     int
	OK        int
	Failed    []string
	Missing   []string
	Errors    []string
	Malformed int
}

// VerificationResult contains the outcome of verifying content against the
// piece hashes of a torrent
type VerificationResult struct {
	TotalPieces     int
	GoodPieces      int
	BadPieces       int
	MissingPieces   int
	Completion      float64
	BadPieceIndices []int
	MissingFiles    []string
}
