package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fishinglog/internal/config"
	"github.com/fishinglog/internal/db"
	"github.com/fishinglog/internal/lunar"
	"github.com/fishinglog/internal/service"
	"gorm.io/gorm"
)

// 演示数据生成器
func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}

	// 初始化数据库
	if err := db.Init(db.Options{Driver: cfg.Database.Driver, Path: cfg.Database.Path, DSN: cfg.Database.DSN}); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成演示数据...")
	summary, err := seedDemoData(context.Background(), db.DB, time.Now().In(cfg.TimeLocation()))
	if err != nil {
		log.Fatal("生成演示数据失败:", err)
	}
	if summary.skipped {
		fmt.Println("已存在出钓记录，跳过生成")
		return
	}

	fmt.Println("演示数据生成完成！")
	fmt.Printf("出钓: %d 次, 天气: %d 条, 渔获: %d 条, 钓具: %d 件\n",
		summary.trips, summary.weather, summary.catches, summary.gear)
}

type seedSummary struct {
	skipped bool
	trips   int
	weather int
	catches int
	gear    int
}

type demoTrip struct {
	daysAgo int
	trip    service.TripInput
	weather []service.WeatherLogInput
	catches []service.CatchInput
}

var demoGear = []service.GearItem{
	{Name: "Soft bait", Brand: "Z-Man", Type: "Lure", Colour: "Motor oil"},
	{Name: "Slow jig 80g", Brand: "Catch", Type: "Lure", Colour: "Pink"},
	{Name: "Spin rod 7ft", Brand: "Ugly Stik", Type: "Rod"},
	{Name: "Stradic 3000", Brand: "Shimano", Type: "Reel"},
}

var demoTrips = []demoTrip{
	{
		daysAgo: 2,
		trip:    service.TripInput{Water: "Waitemata Harbour", Location: "Rangitoto Channel", Hours: "4", Companions: "Aroha", Notes: "Tide turned at **10am**. Workups off the channel marker."},
		weather: []service.WeatherLogInput{{TimeOfDay: "Morning", Sky: "Clear", WindCondition: "Light", WindDirection: "SW", WaterTemp: "19", AirTemp: "21"}},
		catches: []service.CatchInput{
			{Species: "Snapper", Gear: []string{"Soft bait", "Spin rod 7ft"}, Length: "42cm", Weight: "1.4kg", Time: "09:40"},
			{Species: "Kahawai", Gear: []string{"Slow jig 80g"}, Length: "48cm", Weight: "1.9kg", Time: "10:15"},
		},
	},
	{
		daysAgo: 9,
		trip:    service.TripInput{Water: "Lake Taupo", Location: "Western Bays", Hours: "6", Notes: "Harling along the drop-off. Slow start."},
		weather: []service.WeatherLogInput{
			{TimeOfDay: "Dawn", Sky: "Overcast", WindCondition: "Calm", WaterTemp: "16", AirTemp: "12"},
			{TimeOfDay: "Midday", Sky: "Showers", WindCondition: "Moderate", WindDirection: "NW", AirTemp: "15"},
		},
		catches: []service.CatchInput{
			{Species: "Rainbow trout", Length: "55cm", Weight: "2.6kg", Time: "07:10", Details: "Released"},
		},
	},
	{
		daysAgo: 16,
		trip:    service.TripInput{Water: "Manukau Harbour", Location: "Huia", Hours: "3", Companions: "Tama, Mere"},
		weather: []service.WeatherLogInput{{TimeOfDay: "Afternoon", Sky: "Partly cloudy", WindCondition: "Fresh", WindDirection: "W"}},
	},
	{
		daysAgo: 30,
		trip:    service.TripInput{Water: "Hauraki Gulf", Location: "Noises", Hours: "8", Notes: "Big tide. Kingfish on the pins."},
		catches: []service.CatchInput{
			{Species: "Kingfish", Gear: []string{"Slow jig 80g", "Stradic 3000"}, Length: "92cm", Weight: "9.8kg", Time: "13:30"},
			{Species: "Snapper", Gear: []string{"Soft bait"}, Length: "61cm", Weight: "3.9kg", Time: "15:05"},
			{Species: "Gurnard", Length: "35cm", Time: "16:20"},
		},
	},
}

// seedDemoData 写入一组演示出钓记录；库中已有出钓记录时不做任何修改
func seedDemoData(ctx context.Context, gdb *gorm.DB, now time.Time) (seedSummary, error) {
	var summary seedSummary

	trips := service.NewTripService(gdb, nil, nil)
	existing, err := trips.ListAll()
	if err != nil {
		return summary, err
	}
	if len(existing) > 0 {
		summary.skipped = true
		return summary, nil
	}

	tacklebox := service.NewTackleboxService(gdb)
	for _, item := range demoGear {
		if _, err := tacklebox.SaveGear(ctx, item); err != nil {
			return summary, fmt.Errorf("seed gear %s: %w", item.Name, err)
		}
		summary.gear++
	}

	weather := service.NewWeatherLogService(gdb)
	catches := service.NewCatchService(gdb, nil, 0, nil)
	for _, demo := range demoTrips {
		input := demo.trip
		input.Date = now.AddDate(0, 0, -demo.daysAgo).Format(lunar.DateFormat)
		trip, err := trips.Create(input)
		if err != nil {
			return summary, fmt.Errorf("seed trip %s: %w", input.Water, err)
		}
		summary.trips++

		for _, w := range demo.weather {
			if _, err := weather.Create(trip.ID, w); err != nil {
				return summary, fmt.Errorf("seed weather: %w", err)
			}
			summary.weather++
		}
		for _, c := range demo.catches {
			if _, err := catches.Create(ctx, trip.ID, c, nil); err != nil {
				return summary, fmt.Errorf("seed catch %s: %w", c.Species, err)
			}
			summary.catches++
		}
	}
	return summary, nil
}
