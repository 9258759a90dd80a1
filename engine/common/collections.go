package common

// StringSet is a set of strings
type StringSet map[string]struct{}

// Contains checks if StringSet contains the string
func (ss StringSet) Contains(elem string) bool {
	_, ok := ss[elem]
	return ok
}

// Add adds the string to StringSet
func (ss StringSet) Add(elem string) {
	ss[elem] = struct{}{}
}

// Remove removes the string from StringSet
func (ss StringSet) Remove(elem string) {
	delete(ss, elem)
}

// ToList converts StringSet to string slice
func (ss StringSet) ToList() []string {
	keys := make([]string, 0, len(ss))
	for s := range ss {
		keys = append(keys, s)
	}
	return keys
}

// ObjectIDSet is a set of object IDs
type ObjectIDSet map[ObjectID]struct{}

// Add adds an object ID to ObjectIDSet
func (os ObjectIDSet) Add(id ObjectID) {
	os[id] = struct{}{}
}

// Del removes an object ID from ObjectIDSet
func (os ObjectIDSet) Del(id ObjectID) {
	delete(os, id)
}

// Contains checks if object ID is in ObjectIDSet
func (os ObjectIDSet) Contains(id ObjectID) bool {
	_, ok := os[id]
	return ok
}

// ToList converts ObjectIDSet to a slice of object IDs
func (os ObjectIDSet) ToList() []ObjectID {
	list := make([]ObjectID, 0, len(os))
	for id := range os {
		list = append(list, id)
	}
	return list
}
