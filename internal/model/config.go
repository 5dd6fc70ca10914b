// Package model implements the encoder-decoder transformer forward pass:
// scaled dot-product attention, multi-head attention, position-wise
// feed-forward layers, residual+layernorm sublayers, sinusoidal positional
// encoding, and the stacked model with a shared (tied) embedding matrix.
package model

// Config holds the model hyperparameters, fixed at construction.
type Config struct {
	// VocabSize is the number of distinct token indices.
	VocabSize int

	// Layers is the stack depth N of both the encoder and the decoder.
	Layers int

	// Heads is the attention head count h. DModel must divide evenly by it.
	Heads int

	// DModel is the feature width of embeddings and all sublayer outputs.
	DModel int

	// DFF is the inner width of the position-wise feed-forward layers.
	DFF int

	// Eps stabilizes the layer-normalization variance divisor.
	Eps float32

	// Seed drives the deterministic weight initialization.
	Seed int64
}

// HeadDim returns the per-head feature width d_k = DModel / Heads.
func (c Config) HeadDim() int {
	return c.DModel / c.Heads
}

// Validate checks the hyperparameters; a failure prevents model creation.
func (c Config) Validate() error {
	if c.VocabSize <= 0 {
		return configErrf("vocab_size", "%d (must be positive)", c.VocabSize)
	}
	if c.Layers <= 0 {
		return configErrf("layers", "%d (must be positive)", c.Layers)
	}
	if c.Heads <= 0 {
		return configErrf("heads", "%d (must be positive)", c.Heads)
	}
	if c.DModel <= 0 {
		return configErrf("d_model", "%d (must be positive)", c.DModel)
	}
	if c.DModel%c.Heads != 0 {
		return configErrf("d_model", "%d not divisible by heads %d", c.DModel, c.Heads)
	}
	if c.DFF <= 0 {
		return configErrf("d_ff", "%d (must be positive)", c.DFF)
	}
	if c.Eps <= 0 {
		return configErrf("eps", "%g (must be positive)", c.Eps)
	}
	return nil
}

// Default returns the base configuration: d_model 512, 8 heads, 6 layers,
// d_ff 2048, 37000-entry vocabulary.
func Default() Config {
	return Config{
		VocabSize: 37000,
		Layers:    6,
		Heads:     8,
		DModel:    512,
		DFF:       2048,
		Eps:       1e-5,
		Seed:      1,
	}
}
