package cli

import "github.com/alecthomas/kong"

type CLI struct {
	Run            Run              `kong:"cmd,help='Run verification service.'"`
	Health         Health           `kong:"cmd,help='Check service health via metrics endpoint or bridge port.'"`
	CaptchaPreview CaptchaPreview   `kong:"cmd,help='Render captcha samples into PNG files.'"`
	Spell          Spell            `kong:"cmd,help='Print how numbers are spelled in captcha answers.'"`
	Version        kong.VersionFlag `kong:"help='Print version.',short='v'"`
}
