package enhancer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var templates = []string{
	"In 20 years, %[1]s will be completely transformed. Integrated with advanced technology, this concept will become an indispensable part of our daily lives. Thanks to newly developed materials, its durability will increase and it will be redesigned to be environmentally friendly.",
	"In the future, %[1]s will change beyond recognition. Equipped with artificial intelligence, this product will be able to make automatic decisions to make users' lives easier. Energy efficiency will increase and it will have a more compact design.",
	"By 2040, %[1]s will be smarter, faster and more efficient. Thanks to internet connectivity, it will be able to communicate seamlessly with other devices and learn from user habits. It will be made from recyclable materials.",
	"In 20 years, %[1]s will work integrated with quantum computer technology. It will be much smaller in size than it is today, but much more powerful. Thanks to its holographic interface, it will become extremely intuitive to use.",
	"In the future, %[1]s will be produced using nanotechnology. This will allow it to repair itself and have a much longer lifespan. It will be able to read users' thoughts and respond to commands with voice.",
}

var additions = []string{
	" Additionally, %[1]s will now run entirely on renewable energy.",
	" The new version of %[1]s will be equipped with virtual reality features.",
	" Scientists predict that %[1]s will gain features that are beneficial to human health.",
	" Thanks to artificial intelligence, %[1]s will be able to anticipate the needs of its users.",
	" In the future, %[1]s will be producible at a much lower cost.",
}

// TemplateEnhancer fills one random template and appends one random addition.
// It is safe for concurrent use.
type TemplateEnhancer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTemplateEnhancer seeds the template choice; zero uses the clock.
func NewTemplateEnhancer(seed int64) *TemplateEnhancer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TemplateEnhancer{rng: rand.New(rand.NewSource(seed))}
}

func (t *TemplateEnhancer) Enhance(_ context.Context, text string) string {
	t.mu.Lock()
	base := templates[t.rng.Intn(len(templates))]
	extra := additions[t.rng.Intn(len(additions))]
	t.mu.Unlock()

	return fmt.Sprintf(base, text) + fmt.Sprintf(extra, text)
}

var _ Enhancer = (*TemplateEnhancer)(nil)
