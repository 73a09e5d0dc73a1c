package indexing

// Reserved chunk-index namespaces. Supplementary content is indexed far
// above the main-content range so it can never collide with a primary chunk
// of the same lesson and can be filtered by type from the index alone.
const (
	NamespaceMain      = 0
	NamespaceExamples  = 10000
	NamespaceExercises = 20000
	NamespaceVisuals   = 30000
)

// IsSupplementary reports whether a chunk index falls in a reserved
// supplementary namespace.
func IsSupplementary(chunkIndex int) bool {
	return chunkIndex >= NamespaceExamples
}
