package cart

import "encoding/json"

// Marshal serialises the cart to its persisted JSON form.
func Marshal(c Cart) ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal decodes a persisted cart. Malformed payloads fall back to an
// empty cart with the provided tax rate rather than propagating a crash;
// the worst outcome of corruption is re-entry.
func Unmarshal(data []byte, taxBps int64) Cart {
	if len(data) == 0 {
		return New(taxBps)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return New(taxBps)
	}
	if c.TaxBps == 0 {
		c.TaxBps = taxBps
	}
	// Drop entries that cannot contribute to totals.
	lines := c.Lines[:0]
	for _, li := range c.Lines {
		if li.ItemID == "" {
			continue
		}
		if li.Quantity <= 0 && (li.Weight == nil || *li.Weight <= 0) {
			continue
		}
		lines = append(lines, li)
	}
	c.Lines = lines
	return c
}
