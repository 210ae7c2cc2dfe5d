package cache

// Keyer derives cache keys for pipeline outputs.
type Keyer interface {
	// GraphKey is the key of an assembled graph.
	GraphKey(workflowHash string, opts GraphKeyOpts) string

	// ArtifactKey is the key of a rendered artifact.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// GraphKeyOpts are the assembly inputs besides the workflow itself.
type GraphKeyOpts struct {
	ConfigHash string `json:"config"`
	Expanded   bool   `json:"expanded"`
	Selected   string `json:"selected,omitempty"`
	EdgesHash  string `json:"edges,omitempty"`
}

// ArtifactKeyOpts are the rendering inputs besides the graph.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Theme  string `json:"theme,omitempty"`
}

// DefaultKeyer hashes the inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) GraphKey(workflowHash string, opts GraphKeyOpts) string {
	return hashKey("graph", workflowHash, opts)
}

func (DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}
