package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	payrail "github.com/payrail-labs/payrail"
	"github.com/payrail-labs/payrail/schema"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name: "payrail",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "mysql", Value: "root@tcp(127.0.0.1:3306)/payrail?charset=utf8mb4&parseTime=True&loc=Local", Usage: "mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.BoolFlag{Name: "use_sqlite", Value: false, Usage: "run with sqlite instead of mysql", EnvVars: []string{"USE_SQLITE"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite db dir path", EnvVars: []string{"SQLITE_DIR"}},
			&cli.BoolFlag{Name: "s3_flag", Value: false, Usage: "run with s3 store", EnvVars: []string{"S3_FLAG"}},
			&cli.StringFlag{Name: "s3_acc_key", Value: "", Usage: "s3 access key", EnvVars: []string{"S3_ACC_KEY"}},
			&cli.StringFlag{Name: "s3_secret_key", Value: "", Usage: "s3 secret key", EnvVars: []string{"S3_SECRET_KEY"}},
			&cli.StringFlag{Name: "s3_prefix", Value: "payrail", Usage: "s3 bucket name prefix", EnvVars: []string{"S3_PREFIX"}},
			&cli.StringFlag{Name: "s3_region", Value: "ap-northeast-1", Usage: "s3 bucket region", EnvVars: []string{"S3_REGION"}},
			&cli.StringFlag{Name: "s3_endpoint", Value: "", Usage: "s3 compatible endpoint", EnvVars: []string{"S3_ENDPOINT"}},

			&cli.StringFlag{Name: "recipient", Value: "", Usage: "payment recipient address", EnvVars: []string{"RECIPIENT"}},
			&cli.Int64Flag{Name: "chain_id", Value: 8453, Usage: "evm chain id", EnvVars: []string{"CHAIN_ID"}},
			&cli.StringFlag{Name: "token_symbol", Value: "USDC", EnvVars: []string{"TOKEN_SYMBOL"}},
			&cli.StringFlag{Name: "token_address", Value: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Usage: "token contract address", EnvVars: []string{"TOKEN_ADDRESS"}},
			&cli.StringFlag{Name: "token_name", Value: "USD Coin", Usage: "eip712 domain name", EnvVars: []string{"TOKEN_NAME"}},
			&cli.StringFlag{Name: "token_version", Value: "2", Usage: "eip712 domain version", EnvVars: []string{"TOKEN_VERSION"}},
			&cli.IntFlag{Name: "token_decimals", Value: 6, EnvVars: []string{"TOKEN_DECIMALS"}},

			&cli.StringFlag{Name: "kafka_uri", Value: "", Usage: "kafka broker uri, empty to disable", EnvVars: []string{"KAFKA_URI"}},
			&cli.StringFlag{Name: "webhook_url", Value: "", Usage: "payment event webhook, empty to disable", EnvVars: []string{"WEBHOOK_URL"}},

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

	tokens := []schema.TokenMeta{
		{
			Symbol:   c.String("token_symbol"),
			Address:  c.String("token_address"),
			Name:     c.String("token_name"),
			Version:  c.String("token_version"),
			Decimals: c.Int("token_decimals"),
		},
	}

	s := payrail.New(
		c.String("db_dir"), c.String("mysql"), c.String("sqlite_dir"), c.Bool("use_sqlite"),
		c.Bool("s3_flag"), c.String("s3_acc_key"), c.String("s3_secret_key"), c.String("s3_prefix"), c.String("s3_region"), c.String("s3_endpoint"),
		c.String("recipient"), c.Int64("chain_id"), tokens,
		c.String("kafka_uri"), c.String("webhook_url"),
	)
	s.Run(c.String("port"))

	<-signals
	s.Close()

	return nil
}
