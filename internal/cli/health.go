package cli

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/voidcheck/voidcheck/internal/utils"
	"github.com/voidcheck/voidcheck/stats"
)

// healthCheckTimeout: максимальное время ожидания ответа.
// 5 секунд достаточно, docker не считает контейнер unhealthy из-за
// случайных задержек.
const healthCheckTimeout = 5 * time.Second

// Health проверяет работоспособность сервиса.
// Используется в Dockerfile HEALTHCHECK.
//
// Алгоритм:
// 1. Парсит конфиг для определения адреса Prometheus metrics
// 2. Если Prometheus не включён, fallback на TCP connect к порту моста
// 3. HTTP GET /metrics, ожидает 200 OK
type Health struct {
	ConfigPath string `kong:"arg,required,type='existingfile',help='Path to config file.',name='config-path'"` //nolint: lll
}

func (h Health) Run(cli *CLI, version string) error {
	conf, err := utils.ReadConfig(h.ConfigPath)
	if err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}

	if conf.Stats.Prometheus.Enabled.Get(false) {
		_, port, err := net.SplitHostPort(conf.Stats.Prometheus.BindTo.Get(""))
		if err != nil {
			return fmt.Errorf("incorrect prometheus address: %w", err)
		}

		// Для healthcheck всегда подключаемся к localhost
		url := fmt.Sprintf("http://127.0.0.1:%s%s", port, conf.Stats.Prometheus.HTTPPath.Get(stats.DefaultHTTPPath))

		return checkHTTP(url)
	}

	return checkTCP(localAddress(conf.Bridge.BindTo.Get("")))
}

// localAddress заменяет wildcard адрес на loopback.
func localAddress(bindTo string) string {
	host, port, err := net.SplitHostPort(bindTo)
	if err != nil {
		return bindTo
	}

	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}

// checkHTTP проверяет HTTP endpoint, ожидает 200 OK.
func checkHTTP(url string) error {
	client := &http.Client{
		Timeout: healthCheckTimeout,
	}

	resp, err := client.Get(url) //nolint: noctx
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	// Drain body для корректного закрытия соединения
	io.Copy(io.Discard, resp.Body) //nolint: errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	return nil
}

// checkTCP проверяет TCP-доступность порта.
func checkTCP(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, healthCheckTimeout)
	if err != nil {
		return fmt.Errorf("health check TCP connect failed: %w", err)
	}

	conn.Close()

	return nil
}
