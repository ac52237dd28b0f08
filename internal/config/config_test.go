package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bryanwahyu/docimpact/internal/config"
)

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	writeConfig := func(body string) string {
		p := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(p, []byte(body), 0o600)).To(Succeed())
		return p
	}

	It("falls back to defaults when the file is missing", func() {
		cfg, err := config.Load(filepath.Join(dir, "missing.yaml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(8080))
		Expect(cfg.Database.Driver).To(Equal("memory"))
		Expect(cfg.Server.MaxUploadBytes).To(BeEquivalentTo(10 << 20))
		Expect(cfg.Chat.ReplyTimeoutDuration()).To(Equal(30 * time.Second))
	})

	It("reads yaml and lets the environment override it", func() {
		p := writeConfig(`
server:
  port: 9090
database:
  driver: mysql
  host: db
  port: 3306
  user: app
  password: secret
  name: impact
`)
		GinkgoT().Setenv("DOCIMPACT_SERVER_PORT", "9191")

		cfg, err := config.Load(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(9191))
		Expect(cfg.MySQLDSN()).To(Equal("app:secret@tcp(db:3306)/impact?parseTime=true&charset=utf8mb4&loc=UTC"))
	})

	It("builds a postgres dsn", func() {
		p := writeConfig(`
database:
  driver: postgres
  host: pg
  port: 5432
  user: u
  password: p
  name: n
  sslmode: require
`)
		cfg, err := config.Load(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.PostgresDSN()).To(Equal("host=pg port=5432 user=u password=p dbname=n sslmode=require"))
	})

	It("rejects unknown drivers", func() {
		p := writeConfig("database:\n  driver: sqlite\n")
		_, err := config.Load(p)
		Expect(err).To(MatchError(ContainSubstring("unsupported database driver")))
	})
})
