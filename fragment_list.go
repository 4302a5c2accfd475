package subtile

// fragment is one piece of object data in stream order. data is nil when the bytes were
// skipped, size is always the number of bytes the stream declared.
type fragment struct {
	data    []byte
	next    *fragment
	payload *tempPayload
	size    int
}

// fragmentList accumulates the pieces of an object until it is complete
type fragmentList struct {
	head, tail *fragment

	l, s int
}

func newFragmentList() *fragmentList {
	return &fragmentList{}
}

func (fl *fragmentList) pushBack(f *fragment) {
	if fl.head != nil {
		fl.tail.next = f
	} else {
		fl.head = f
	}

	fl.s += f.size
	fl.l++

	fl.tail = f
}

// size returns the declared number of bytes accumulated so far
func (fl *fragmentList) size() int {
	return fl.s
}

func (fl *fragmentList) length() int {
	return fl.l
}

// hasData reports whether every fragment kept its bytes
func (fl *fragmentList) hasData() bool {
	for f := fl.head; f != nil; f = f.next {
		if f.data == nil && f.size > 0 {
			return false
		}
	}
	return true
}

// assemble concatenates fragments into a pooled payload the caller must put back
func (fl *fragmentList) assemble() *tempPayload {
	tp := poolOfTempPayload.get(fl.s)
	var c int
	for f := fl.head; f != nil; f = f.next {
		c += copy(tp.s[c:], f.data)
	}
	tp.s = tp.s[:c]
	return tp
}

// clear returns payloads to the pool and empties the list
func (fl *fragmentList) clear() {
	head := fl.head
	for head != nil {
		cur := head
		head = cur.next
		poolOfTempPayload.put(cur.payload)
	}
	*fl = fragmentList{}
}
