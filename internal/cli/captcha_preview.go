package cli

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/voidcheck/voidcheck/bridge"
	"github.com/voidcheck/voidcheck/captcha"
	"github.com/voidcheck/voidcheck/internal/utils"
	"github.com/voidcheck/voidcheck/logger"
)

const DefaultPreviewCount = 10

// CaptchaPreview renders a few samples with configured fonts, colors
// and effects. It does not need a running service.
type CaptchaPreview struct {
	ConfigPath string `kong:"arg,required,type='existingfile',help='Path to the configuration file.',name='config-path'"` //nolint: lll
	Out        string `kong:"help='Directory to write PNG files to.',short='o',type='path',default='.'"`
	Count      int    `kong:"help='A number of samples.',short='c',default='10'"`
}

func (c *CaptchaPreview) Run(cli *CLI, _ string) error {
	conf, err := utils.ReadConfig(c.ConfigPath)
	if err != nil {
		return fmt.Errorf("cannot init config: %w", err)
	}

	opts := makeCaptchaOptions(conf, bridge.NewEncoder(), logger.NewNoopLogger(), nil)

	generator, err := captcha.NewGenerator(opts)
	if err != nil {
		return fmt.Errorf("cannot build captcha generator: %w", err)
	}

	defer generator.Shutdown()

	count := c.Count
	if count <= 0 {
		count = DefaultPreviewCount
	}

	previews, err := generator.Preview(count)
	if err != nil {
		return fmt.Errorf("cannot render captcha: %w", err)
	}

	if err := os.MkdirAll(c.Out, 0o755); err != nil { //nolint: gomnd
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	for i, preview := range previews {
		path := filepath.Join(c.Out, fmt.Sprintf("captcha-%03d.png", i))

		if err := writePNG(path, preview.Image); err != nil {
			return err
		}

		fmt.Printf("%s\t%s\n", path, preview.Answer) //nolint: forbidigo
	}

	return nil
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}

	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("cannot encode %s: %w", path, err)
	}

	return nil
}
