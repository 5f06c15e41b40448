package message

import "fmt"

// Tag identifies the payload kind carried by a message.
type Tag uint8

const (
	TagNone   Tag = 0
	TagSum    Tag = 1
	TagUpdate Tag = 2
	TagSum2   Tag = 3
)

func (t Tag) String() string {
	switch t {
	case TagSum:
		return "sum"
	case TagUpdate:
		return "update"
	case TagSum2:
		return "sum2"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

func (t Tag) Valid() bool {
	return t == TagSum || t == TagUpdate || t == TagSum2
}
