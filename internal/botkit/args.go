package botkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseJSON разбирает аргументы команды как JSON объект
func ParseJSON[T any](src string) (T, error) {
	var args T

	if err := json.Unmarshal([]byte(src), &args); err != nil {
		return *(new(T)), fmt.Errorf("invalid arguments: %w", err)
	}

	return args, nil
}

// Args - аргументы команды, разбитые по пробелам
type Args []string

func ParseArgs(src string) Args {
	return strings.Fields(src)
}

// ID разбирает аргумент с номером i как идентификатор
func (a Args) ID(i int) (int64, error) {
	if i >= len(a) {
		return 0, fmt.Errorf("missing argument #%d", i+1)
	}

	id, err := strconv.ParseInt(a[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not an id", a[i])
	}

	return id, nil
}

// Int разбирает аргумент с номером i как число
func (a Args) Int(i int) (int, error) {
	if i >= len(a) {
		return 0, fmt.Errorf("missing argument #%d", i+1)
	}

	n, err := strconv.Atoi(a[i])
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", a[i])
	}

	return n, nil
}

// Rest склеивает аргументы начиная с i обратно в строку
func (a Args) Rest(i int) string {
	if i >= len(a) {
		return ""
	}

	return strings.Join(a[i:], " ")
}

// Confirmed - последний аргумент "yes", так пользователь подтверждает действие
func (a Args) Confirmed() bool {
	return len(a) > 0 && strings.EqualFold(a[len(a)-1], "yes")
}
