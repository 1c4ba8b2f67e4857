// Command seed loads pre-minted voucher PINs into the inventory, either
// from a CSV file (card_type,pin,serial,face_value,unit_price) or as
// generated demo stock for local development.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pinmart/pinmart/internal/config"
	"github.com/pinmart/pinmart/internal/logger"
	"github.com/pinmart/pinmart/internal/models"
	"github.com/pinmart/pinmart/internal/repository"
	"github.com/pinmart/pinmart/internal/service"

	"github.com/google/uuid"
)

func main() {
	var csvPath string
	var demo bool
	flag.StringVar(&csvPath, "file", "", "CSV file with columns card_type,pin,serial,face_value,unit_price")
	flag.BoolVar(&demo, "demo", false, "seed generated demo vouchers instead of a CSV file")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	db, err := models.Open(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	})
	if err != nil {
		stdLog.Fatalf("database open failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		stdLog.Fatalf("database migrate failed: %v", err)
	}

	cardService := service.NewCardService(repository.NewCardRepository(db))

	var inputs []service.ImportCardInput
	switch {
	case csvPath != "":
		inputs, err = readCSV(csvPath)
		if err != nil {
			stdLog.Fatalf("read csv failed: %v", err)
		}
	case demo:
		inputs = demoVouchers()
	default:
		stdLog.Fatalf("nothing to do: pass -file <path> or -demo")
	}

	count, err := cardService.ImportBatch(inputs)
	if err != nil {
		stdLog.Fatalf("import failed: %v", err)
	}
	stdLog.Printf("imported %d vouchers", count)
}

func readCSV(path string) ([]service.ImportCardInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var inputs []service.ImportCardInput
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && record[0] == "card_type" {
			continue
		}
		if len(record) < 5 {
			return nil, fmt.Errorf("line %d: expected 5 columns, got %d", line, len(record))
		}
		inputs = append(inputs, service.ImportCardInput{
			CardType:  record[0],
			PIN:       record[1],
			Serial:    record[2],
			FaceValue: record[3],
			UnitPrice: record[4],
		})
	}
	return inputs, nil
}

func demoVouchers() []service.ImportCardInput {
	plans := []struct {
		CardType  string
		Count     int
		FaceValue string
		UnitPrice string
	}{
		{CardType: "WAEC", Count: 25, FaceValue: "3500.00", UnitPrice: "3600.00"},
		{CardType: "NECO", Count: 15, FaceValue: "1300.00", UnitPrice: "1400.00"},
		{CardType: "JAMB", Count: 10, FaceValue: "4700.00", UnitPrice: "4850.00"},
	}
	var inputs []service.ImportCardInput
	for _, plan := range plans {
		for i := 1; i <= plan.Count; i++ {
			inputs = append(inputs, service.ImportCardInput{
				CardType:  plan.CardType,
				PIN:       uuid.NewString(),
				Serial:    fmt.Sprintf("%s-%04d", plan.CardType, i),
				FaceValue: plan.FaceValue,
				UnitPrice: plan.UnitPrice,
			})
		}
	}
	return inputs
}
