// Package fastmap provides an open-addressing hash map for uint32 keys.
// Sequential keys are spread with fibonacci hashing.
package fastmap

// Uint32Map maps uint32 keys to values of type V using linear probing.
// The zero value is an empty map ready to use.
type Uint32Map[V any] struct {
	buckets []bucket[V]
	count   int
	mask    uint32
}

type bucket[V any] struct {
	key   uint32
	value V
	used  bool // key 0 is valid
}

// 2^32 / golden ratio
const fibHash32 = 2654435769

func (m *Uint32Map[V]) home(key uint32) uint32 {
	return (key * fibHash32) & m.mask
}

// find returns the bucket index holding key, or -1.
func (m *Uint32Map[V]) find(key uint32) int {
	if len(m.buckets) == 0 {
		return -1
	}
	for idx := m.home(key); ; idx = (idx + 1) & m.mask {
		b := &m.buckets[idx]
		if !b.used {
			return -1
		}
		if b.key == key {
			return int(idx)
		}
	}
}

// Get returns the value stored under key.
func (m *Uint32Map[V]) Get(key uint32) (V, bool) {
	if i := m.find(key); i >= 0 {
		return m.buckets[i].value, true
	}
	var zero V
	return zero, false
}

// Set stores value under key, replacing any previous value.
func (m *Uint32Map[V]) Set(key uint32, value V) {
	if len(m.buckets) == 0 {
		m.buckets = make([]bucket[V], 16)
		m.mask = 15
	} else if m.count >= len(m.buckets)*3/4 {
		m.grow()
	}

	for idx := m.home(key); ; idx = (idx + 1) & m.mask {
		b := &m.buckets[idx]
		if !b.used {
			*b = bucket[V]{key: key, value: value, used: true}
			m.count++
			return
		}
		if b.key == key {
			b.value = value
			return
		}
	}
}

// Delete removes key and reports whether it was present. Later entries of
// the probe chain are shifted back so lookups never need tombstones.
func (m *Uint32Map[V]) Delete(key uint32) bool {
	i := m.find(key)
	if i < 0 {
		return false
	}
	hole := uint32(i)
	for j := (hole + 1) & m.mask; m.buckets[j].used; j = (j + 1) & m.mask {
		k := m.home(m.buckets[j].key)
		// Entry j may fill the hole unless its home lies in (hole, j].
		var reachable bool
		if hole <= j {
			reachable = hole < k && k <= j
		} else {
			reachable = k > hole || k <= j
		}
		if !reachable {
			m.buckets[hole] = m.buckets[j]
			hole = j
		}
	}
	m.buckets[hole] = bucket[V]{}
	m.count--
	return true
}

func (m *Uint32Map[V]) grow() {
	old := m.buckets
	m.buckets = make([]bucket[V], len(old)*2)
	m.mask = uint32(len(m.buckets) - 1)
	m.count = 0

	for i := range old {
		if old[i].used {
			m.Set(old[i].key, old[i].value)
		}
	}
}

// ForEach calls fn for every entry in unspecified order. fn must not modify
// the map.
func (m *Uint32Map[V]) ForEach(fn func(uint32, V)) {
	for i := range m.buckets {
		if m.buckets[i].used {
			fn(m.buckets[i].key, m.buckets[i].value)
		}
	}
}

// Clear removes all entries but keeps the backing array.
func (m *Uint32Map[V]) Clear() {
	clear(m.buckets)
	m.count = 0
}

// Len returns the number of entries.
func (m *Uint32Map[V]) Len() int {
	return m.count
}
