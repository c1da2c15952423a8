package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"careerDesk/internal/config"
	"careerDesk/internal/database"
	"careerDesk/internal/identity"
)

const usage = `用法:
  admin migrate
  admin provision-user --identity <id> --email <email> [--first-name <name>] [--last-name <name>]`

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.InitDatabase(cfg.Database, cfg.Log.Level)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	switch os.Args[1] {
	case "migrate":
		if err := database.Migrate(db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		fmt.Println("数据库迁移完成")

	case "provision-user":
		fs := flag.NewFlagSet("provision-user", flag.ExitOnError)
		identityID := fs.String("identity", "", "身份服务中的用户 ID（必填）")
		email := fs.String("email", "", "邮箱（必填）")
		firstName := fs.String("first-name", "", "名")
		lastName := fs.String("last-name", "", "姓")
		_ = fs.Parse(os.Args[2:])

		if strings.TrimSpace(*identityID) == "" || strings.TrimSpace(*email) == "" {
			log.Fatal("missing required flag: --identity and --email")
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("migrate: %v", err)
		}

		// 与 webhook 走同一条建档路径，重复执行不会生成第二条记录。
		evt := &identity.Event{
			Type: identity.EventUserCreated,
			Data: identity.EventUser{
				ID:        strings.TrimSpace(*identityID),
				Email:     strings.TrimSpace(*email),
				FirstName: firstName,
				LastName:  lastName,
			},
		}
		created, err := identity.NewProvisioner(db).Handle(context.Background(), evt)
		if err != nil {
			log.Fatalf("provision user: %v", err)
		}
		if created {
			fmt.Printf("已创建用户 %s\n", evt.Data.ID)
		} else {
			fmt.Printf("用户 %s 已存在，未做修改\n", evt.Data.ID)
		}

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}
