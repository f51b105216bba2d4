package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"parking-backend/config"
	"parking-backend/internal/db"
	"parking-backend/internal/model"
	"parking-backend/internal/mw"
	"parking-backend/internal/store"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "path to the config file")
	lotName := flag.String("lot", "Central", "parking lot name")
	spaces := flag.Int("spaces", 10, "number of spaces to create")
	hourly := flag.Float64("hourly", 5, "hourly tariff amount (0 skips the tariff)")
	drivers := flag.Int("drivers", 2, "number of drivers to create, each with one vehicle")
	tokenTTL := flag.Duration("token_ttl", 0, "lifetime of the printed tokens (default auth.token_ttl_hours)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	s := store.NewGormStore(gormDB)
	if *tokenTTL <= 0 {
		*tokenTTL = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	suffix := time.Now().Format("20060102150405")
	token := func(u model.User) string {
		t, err := mw.IssueToken(cfg.Auth.JWTSecret, u.ID, u.Role, *tokenTTL)
		if err != nil {
			log.Fatal(err)
		}
		return t
	}

	err = s.InTx(ctx, func(tx store.Repo) error {
		operator := model.User{Name: "Operator", Email: "operator+" + suffix + "@example.com", Role: model.RoleOperator}
		if err := tx.CreateUser(ctx, &operator); err != nil {
			return err
		}

		lot := model.Lot{Name: *lotName, OperatorID: &operator.ID}
		if err := tx.CreateLot(ctx, &lot); err != nil {
			return err
		}
		for i := 1; i <= *spaces; i++ {
			space := model.Space{LotID: lot.ID, Label: fmt.Sprintf("S-%02d", i), State: model.SpaceAvailable}
			if err := tx.CreateSpace(ctx, &space); err != nil {
				return err
			}
		}
		if *hourly > 0 {
			t := model.Tariff{LotID: lot.ID, Type: model.TariffHourly, Amount: *hourly}
			if err := tx.CreateTariff(ctx, &t); err != nil {
				return err
			}
		}
		for _, m := range []model.PaymentMethod{
			{Name: "Cash", Kind: model.MethodCash},
			{Name: "Card", Kind: model.MethodCard},
			{Name: "QR", Kind: model.MethodQR},
		} {
			if err := tx.CreatePaymentMethod(ctx, &m); err != nil {
				return err
			}
			fmt.Printf("payment method %-4s id=%d\n", m.Name, m.ID)
		}

		fmt.Printf("lot %q id=%d with %d spaces\n", lot.Name, lot.ID, *spaces)
		fmt.Printf("operator id=%d token=%s\n", operator.ID, token(operator))

		for i := 1; i <= *drivers; i++ {
			driver := model.User{Name: fmt.Sprintf("Driver %d", i), Email: fmt.Sprintf("driver%d+%s@example.com", i, suffix), Role: model.RoleDriver}
			if err := tx.CreateUser(ctx, &driver); err != nil {
				return err
			}
			vehicle := model.Vehicle{UserID: driver.ID, Plate: fmt.Sprintf("SEED-%s-%d", suffix[8:], i)}
			if err := tx.CreateVehicle(ctx, &vehicle); err != nil {
				return err
			}
			fmt.Printf("driver id=%d vehicle id=%d plate=%s token=%s\n", driver.ID, vehicle.ID, vehicle.Plate, token(driver))
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Seed complete.")
}
