package storefront

import "github.com/tair/storefront/pkg/money"

// cartSet keeps lines unique by key in insertion order.
type cartSet struct {
	order []LineKey
	lines map[LineKey]CartLine
}

func newCartSet(lines []CartLine) *cartSet {
	s := &cartSet{lines: make(map[LineKey]CartLine, len(lines))}
	for _, l := range lines {
		if l.Quantity > 0 {
			s.add(l)
		}
	}
	return s
}

// add increments an existing line or appends a new one.
func (s *cartSet) add(line CartLine) {
	key := line.Key()
	if existing, ok := s.lines[key]; ok {
		existing.Quantity += line.Quantity
		s.lines[key] = existing
		return
	}
	line.ProductID, line.Size, line.Color = key.ProductID, key.Size, key.Color
	line.Images = cloneStrings(line.Images)
	s.order = append(s.order, key)
	s.lines[key] = line
}

func (s *cartSet) set(key LineKey, quantity int) bool {
	line, ok := s.lines[key]
	if !ok {
		return false
	}
	line.Quantity = quantity
	s.lines[key] = line
	return true
}

func (s *cartSet) remove(key LineKey) bool {
	if _, ok := s.lines[key]; !ok {
		return false
	}
	delete(s.lines, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *cartSet) get(key LineKey) (CartLine, bool) {
	l, ok := s.lines[key]
	return l, ok
}

func (s *cartSet) list() []CartLine {
	out := make([]CartLine, 0, len(s.order))
	for _, k := range s.order {
		l := s.lines[k]
		l.Images = cloneStrings(l.Images)
		out = append(out, l)
	}
	return out
}

func (s *cartSet) count() int {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

func (s *cartSet) total() money.Cents {
	var t money.Cents
	for _, l := range s.lines {
		t += l.Subtotal()
	}
	return t
}

// favoriteSet keeps products unique by id in insertion order.
type favoriteSet struct {
	order    []string
	products map[string]Product
}

func newFavoriteSet(products []Product) *favoriteSet {
	s := &favoriteSet{products: make(map[string]Product, len(products))}
	for _, p := range products {
		s.add(p)
	}
	return s
}

func (s *favoriteSet) add(p Product) bool {
	if p.ID == "" {
		return false
	}
	if _, ok := s.products[p.ID]; ok {
		return false
	}
	s.order = append(s.order, p.ID)
	s.products[p.ID] = cloneProduct(p)
	return true
}

func (s *favoriteSet) remove(id string) bool {
	if _, ok := s.products[id]; !ok {
		return false
	}
	delete(s.products, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *favoriteSet) has(id string) bool {
	_, ok := s.products[id]
	return ok
}

func (s *favoriteSet) list() []Product {
	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneProduct(s.products[id]))
	}
	return out
}

func (s *favoriteSet) len() int {
	return len(s.order)
}
