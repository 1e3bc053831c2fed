package repository

import (
	"context"
	"time"

	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/internal/entity"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repositories holds all repositories
type Repositories struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Room         RoomStore
	Conversation ConversationStore
	Message      MessageStore
	Seq          SeqAllocator
	Reaction     ReactionStore
	ReadCursor   ReadCursorStore
	Directory    Directory
}

// NewRepositories creates all MySQL and Redis backed repositories
func NewRepositories(cfg *config.Config) (*Repositories, error) {
	// Initialize MySQL
	db, err := initMySQL(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize Redis
	rdb := InitRedis(cfg)

	repos := &Repositories{
		DB:    db,
		Redis: rdb,
	}

	// Initialize individual repositories
	msgRepo := NewMessageRepo(db)
	repos.Room = NewRoomRepo(db)
	repos.Conversation = NewConversationRepo(db)
	repos.Message = msgRepo
	repos.Seq = NewSeqRepo(rdb, msgRepo)
	repos.Reaction = NewReactionRepo(db)
	repos.ReadCursor = NewReadCursorRepo(db)
	repos.Directory = NewDirectoryRepo(db)

	if cfg.MySQL.AutoMigrate {
		if err := repos.AutoMigrate(); err != nil {
			return nil, err
		}
	}

	return repos, nil
}

// initMySQL initializes MySQL connection
func initMySQL(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// InitRedis initializes Redis connection
func InitRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// AutoMigrate creates the chat tables. Host tables (users, building_members) are left alone.
func (r *Repositories) AutoMigrate() error {
	return r.DB.AutoMigrate(
		&entity.Room{},
		&entity.Conversation{},
		&entity.Message{},
		&entity.Reaction{},
		&entity.ReadCursor{},
	)
}

// Close closes all connections
func (r *Repositories) Close() error {
	if r.DB != nil {
		sqlDB, err := r.DB.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Close(); err != nil {
			return err
		}
	}
	if r.Redis != nil {
		return r.Redis.Close()
	}
	return nil
}

// CheckConnection checks if database and redis connections are alive
func (r *Repositories) CheckConnection(ctx context.Context) error {
	// Check MySQL
	if r.DB != nil {
		sqlDB, err := r.DB.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			log.CtxError(ctx, "mysql ping failed: %v", err)
			return err
		}
	}

	// Check Redis
	if r.Redis != nil {
		if err := r.Redis.Ping(ctx).Err(); err != nil {
			log.CtxError(ctx, "redis ping failed: %v", err)
			return err
		}
	}

	return nil
}
