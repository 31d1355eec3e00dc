package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/voidcheck/voidcheck/captcha"
	"github.com/voidcheck/voidcheck/internal/utils"
)

// Spell prints numbers of a range as they are drawn on a captcha. It
// helps to check custom spelling words.
type Spell struct {
	From       int    `kong:"arg,required,help='First number.'"`
	To         int    `kong:"arg,required,help='Last number.'"`
	ConfigPath string `kong:"help='Path to the configuration file with custom spelling.',type='existingfile',short='c'"`
}

func (s *Spell) Run(cli *CLI, _ string) error {
	spelling := captcha.DefaultSpelling()

	if s.ConfigPath != "" {
		conf, err := utils.ReadConfig(s.ConfigPath)
		if err != nil {
			return fmt.Errorf("cannot init config: %w", err)
		}

		if custom := conf.Captcha.Spelling; custom != nil {
			spelling = captcha.Spelling{
				Exceptions: custom.Exceptions,
				Words:      custom.Words,
			}
		}
	}

	return printSpelling(os.Stdout, spelling, s.From, s.To)
}

func printSpelling(w io.Writer, spelling captcha.Spelling, from, to int) error {
	if from > to {
		from, to = to, from
	}

	for i := from; i <= to; i++ {
		text, err := spelling.Spell(i)
		if err != nil {
			return fmt.Errorf("cannot spell %d: %w", i, err)
		}

		fmt.Fprintf(w, "%d\t%s\n", i, text)
	}

	return nil
}
