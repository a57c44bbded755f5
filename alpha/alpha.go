package alpha

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// Namer produces a deterministic sequence of labels. Next returns io.EOF
// once every label has been produced.
type Namer interface {
	Next() (string, error)
	Reset()
}

const (
	lowerA  = 'a'
	lowerZ  = 'z'
	upperA  = 'A'
	upperZ  = 'Z'
	number0 = '0'
	number9 = '9'
)

type Char struct {
	step int
	curr rune
	min  rune
	max  rune
}

func Create(min, max rune, step int) *Char {
	return &Char{
		step: step,
		curr: min,
		min:  min,
		max:  max,
	}
}

func Lower() *Char {
	return Create(lowerA, lowerZ, 1)
}

func Upper() *Char {
	return Create(upperA, upperZ, 1)
}

func Number() *Char {
	return Create(number0, number9, 1)
}

func (c *Char) Get() rune {
	return c.curr
}

func (c *Char) Next() rune {
	if c.Done() {
		return c.Get()
	}
	c.curr += rune(c.step)
	if c.curr > c.max {
		c.curr = utf8.RuneError
	}
	return c.curr
}

func (c *Char) Done() bool {
	return c.curr == utf8.RuneError
}

func (c *Char) Reset() {
	c.curr = c.min
}

type chain struct {
	list []*Char
}

func NewLowerString(size int) Namer {
	return newChain(size, Lower)
}

func NewUpperString(size int) Namer {
	return newChain(size, Upper)
}

func NewNumberString(size int) Namer {
	return newChain(size, Number)
}

func newChain(size int, create func() *Char) Namer {
	var c chain
	for i := 0; i < size; i++ {
		c.list = append(c.list, create())
	}
	return &c
}

func (c *chain) Next() (string, error) {
	if len(c.list) == 0 || c.list[0].Done() {
		return "", io.EOF
	}
	return c.next(), nil
}

func (c *chain) Reset() {
	for i := range c.list {
		c.list[i].Reset()
	}
}

func (c *chain) next() string {
	var chars []rune
	for _, a := range c.list {
		chars = append(chars, a.Get())
	}
	for i := len(c.list) - 1; i >= 0; i-- {
		c.list[i].Next()
		if !c.list[i].Done() {
			for j := i + 1; j < len(c.list); j++ {
				c.list[j].Reset()
			}
			break
		}
		if i == 0 {
			break
		}
	}
	return string(chars)
}

type compose struct {
	list []Namer
	buf  []string
	sep  string
	done bool
}

// Compose joins the labels of each part with a dash, the last part varying
// first.
func Compose(part ...Namer) Namer {
	c := compose{
		list: part,
		sep:  "-",
	}
	c.Reset()
	return &c
}

func (c *compose) Next() (string, error) {
	if c.done || len(c.list) == 0 {
		return "", io.EOF
	}
	str := strings.Join(c.buf, c.sep)
	c.done = errors.Is(c.next(), io.EOF)
	return str, nil
}

func (c *compose) next() error {
	for i := len(c.list) - 1; i >= 0; i-- {
		str, err := c.list[i].Next()
		if err == nil {
			c.buf[i] = str
			return nil
		}
		if !errors.Is(err, io.EOF) {
			return err
		}
		if i == 0 {
			return io.EOF
		}
		c.list[i].Reset()
		c.buf[i], _ = c.list[i].Next()
	}
	return io.EOF
}

func (c *compose) Reset() {
	c.done = false
	c.buf = c.buf[:0]
	for i := range c.list {
		c.list[i].Reset()
		str, err := c.list[i].Next()
		if err != nil {
			c.done = true
		}
		c.buf = append(c.buf, str)
	}
}
