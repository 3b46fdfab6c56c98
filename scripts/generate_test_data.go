package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/edunet/internal/config"
	"github.com/edunet/internal/content"
	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/sitecontent"
)

// 测试数据生成器：为空页面填充默认内容，并批量创建演示学生
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel)

	count, _ := strconv.Atoi(os.Getenv("SEED_STUDENTS"))
	if count <= 0 {
		count = 24
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := sitecontent.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	login, err := client.Login(ctx, os.Getenv("SEED_USERNAME"), os.Getenv("SEED_PASSWORD"))
	if err != nil {
		logger.Fatal().Err(err).Msg("login failed, set SEED_USERNAME and SEED_PASSWORD")
	}

	fmt.Println("开始生成测试数据...")
	seeded, err := seedEmptyPages(ctx, client, login.AccessToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed pages")
	}
	created, err := createTestStudents(ctx, client, login.AccessToken, count)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create students")
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("页面: %d 个填充了默认内容\n", seeded)
	fmt.Printf("学生: %d 名\n", created)
}

type seedClient interface {
	GetPage(ctx context.Context, token, slug string) ([]content.Section, error)
	SeedPage(ctx context.Context, token, slug string) error
	ListClasses(ctx context.Context, token string) ([]sitecontent.SchoolClass, error)
	CreateStudent(ctx context.Context, token string, input sitecontent.StudentInput) (sitecontent.Student, error)
}

// seedEmptyPages 只为没有任何 section 的核心页面调用 seed，已有内容的页面保持不变。
func seedEmptyPages(ctx context.Context, client seedClient, token string) (int, error) {
	seeded := 0
	for _, slug := range content.CorePageOrder {
		sections, err := client.GetPage(ctx, token, slug)
		if err != nil {
			return seeded, fmt.Errorf("load %s: %w", slug, err)
		}
		if len(sections) > 0 {
			fmt.Printf("页面 %s 已有内容，跳过\n", slug)
			continue
		}
		if err := client.SeedPage(ctx, token, slug); err != nil {
			return seeded, fmt.Errorf("seed %s: %w", slug, err)
		}
		seeded++
	}
	return seeded, nil
}

var (
	firstNames = []string{"Aarav", "Diya", "Ishaan", "Meera", "Kabir", "Anaya", "Vihaan", "Saanvi", "Arjun", "Myra"}
	lastNames  = []string{"Sharma", "Iyer", "Khan", "Patel", "Das", "Reddy", "Nair", "Singh"}
	genders    = []string{"Male", "Female"}
)

// createTestStudents 轮流分配到现有班级，姓名和性别按序号确定，便于重复运行时对比导出结果。
func createTestStudents(ctx context.Context, client seedClient, token string, count int) (int, error) {
	classes, err := client.ListClasses(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("list classes: %w", err)
	}

	created := 0
	for i := 0; i < count; i++ {
		input := sitecontent.StudentInput{
			Name:   firstNames[i%len(firstNames)] + " " + lastNames[(i/len(firstNames))%len(lastNames)],
			Gender: genders[i%len(genders)],
			RollNo: strconv.Itoa(i + 1),
		}
		if len(classes) > 0 {
			id := classes[i%len(classes)].ID
			input.ClassID = &id
		}
		dob := time.Date(2010+i%8, time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		input.DOB = &dob

		if _, err := client.CreateStudent(ctx, token, input); err != nil {
			return created, fmt.Errorf("create %s: %w", input.Name, err)
		}
		created++
	}
	return created, nil
}
