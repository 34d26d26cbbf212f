// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\prompt\prompt.go
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Request は1回分の問い合わせです。
type Request struct {
	Key     string
	Label   string
	Hint    string
	Default string
	Secret  bool
	// Confirm は yes/no の質問であることを示します。
	Confirm bool
}

// Provider は同期的にユーザー入力を返します。
// ok=false はユーザーがキャンセルしたことを表します。
type Provider interface {
	Ask(ctx context.Context, req Request) (answer string, ok bool, err error)
}

// Confirm は yes/no を問い合わせます。キャンセルは no とみなします。
func Confirm(ctx context.Context, p Provider, key, label string) (bool, error) {
	ans, ok, err := p.Ask(ctx, Request{Key: key, Label: label, Confirm: true})
	if err != nil || !ok {
		return false, err
	}
	return IsYes(ans), nil
}

func IsYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1", "ok":
		return true
	}
	return false
}

// Answers はキーごとの固定回答を返す Provider です。
// HTTP リクエストの本文やテストの入力に使います。未登録のキーは既定値、
// 既定値も無ければキャンセル扱いになります。
type Answers map[string]string

func (a Answers) Ask(ctx context.Context, req Request) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if v, ok := a[req.Key]; ok {
		return v, true, nil
	}
	if req.Default != "" {
		return req.Default, true, nil
	}
	return "", false, nil
}

// Terminal は標準入出力で問い合わせます。入力が EOF になるとキャンセル扱いです。
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex
	// readSecret は入力が端末の場合だけ設定され、エコーせずに1行読みます。
	readSecret func() ([]byte, error)
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		t.readSecret = func() ([]byte, error) { return term.ReadPassword(fd) }
	}
	return t
}

func (t *Terminal) Ask(ctx context.Context, req Request) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	label := req.Label
	if req.Hint != "" {
		label += fmt.Sprintf(" (%s)", req.Hint)
	}
	switch {
	case req.Confirm:
		label += " [y/N]"
	case req.Default != "":
		label += fmt.Sprintf(" [%s]", req.Default)
	}
	fmt.Fprintf(t.out, "%s: ", label)

	if req.Secret && t.readSecret != nil {
		b, err := t.readSecret()
		// 入力はエコーされないので改行だけ出す
		fmt.Fprintln(t.out)
		if err != nil {
			return "", false, err
		}
		return strings.TrimSpace(string(b)), true, nil
	}

	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			fmt.Fprintln(t.out)
			return "", false, nil
		}
		return "", false, err
	}
	line = strings.TrimSpace(line)
	if line == "" && req.Default != "" {
		line = req.Default
	}
	return line, true, nil
}
