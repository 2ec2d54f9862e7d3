package pcsc

import (
	"github.com/ansel1/merry/v2"
)

func deferWrap(err *error) {
	if err != nil {
		*err = merry.WrapSkipping(*err, 1)
	}
}

func must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
