package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/deedlabs/deedmarket"
	"github.com/deedlabs/deedmarket/common"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name: "deedmarket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "mysql", Value: "root@tcp(127.0.0.1:3306)/deedmarket?charset=utf8mb4&parseTime=True&loc=Local", Usage: "mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite db dir path", EnvVars: []string{"SQLITE_DIR"}},
			&cli.BoolFlag{Name: "use_sqlite", Value: false, Usage: "run with sqlite instead of mysql", EnvVars: []string{"USE_SQLITE"}},
			&cli.StringFlag{Name: "admin", Value: "", Usage: "administrator address, seeds the gate config on first boot", EnvVars: []string{"ADMIN"}},
			&cli.BoolFlag{Name: "use_kafka", Value: false, Usage: "publish trade receipts to kafka", EnvVars: []string{"USE_KAFKA"}},
			&cli.StringFlag{Name: "kafka_uri", Value: "127.0.0.1:9092", EnvVars: []string{"KAFKA_URI"}},
			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	common.NewMetricServer()

	s := deedmarket.New(
		c.String("db_dir"), c.String("mysql"), c.String("sqlite_dir"), c.Bool("use_sqlite"),
		c.String("admin"),
		c.Bool("use_kafka"), c.String("kafka_uri"),
	)
	s.Run(c.String("port"))

	<-signals
	s.Close()

	return nil
}
