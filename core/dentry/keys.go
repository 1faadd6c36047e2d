package dentry

import "strconv"

// Key layout
//
//	Namespace  Prefix  Key                                  Value
//	live       "d:"    d:<parentCloudID>\x00<name>           Entry (JSON)
//	recycle    "r:"    r:<name>\x00<parentCloudID>\x00<row>  Entry (JSON)
//
// The NUL separator cannot occur in file names or cloud ids, so keys of
// different entries never collide. All live children of a parent share the
// prefix d:<parentCloudID>\x00.
const (
	prefixLive    = "d:"
	prefixRecycle = "r:"
	sep           = "\x00"
)

func keyLive(parentID, name string) []byte {
	return []byte(prefixLive + parentID + sep + name)
}

func keyRecycle(name, parentID string, rowID int64) []byte {
	return []byte(prefixRecycle + name + sep + parentID + sep + strconv.FormatInt(rowID, 10))
}
