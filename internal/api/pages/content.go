package pages

import (
	"fmt"

	pagetempl "github.com/oreopets/portal/internal/templates/components/pages"
)

const galleryPhotoCount = 30

var homeContent = pagetempl.HomeData{
	Headline: "Welcome to Oreo Pet Bath & Care 🐾",
	Tagline:  "We offer top-tier grooming, bathing, and pet care for your furry friends!",
	About: []string{
		"At Oreo Pet Bath & Care, we offer professional grooming services with a loving touch.",
		"We also carry high-quality pet food, toys, grooming tools, and everything your pet needs to stay happy, healthy, and adorable. Because every pet deserves the best.",
	},
	AboutZH: []string{
		"在这里，我们提供专业又贴心的美容服务。",
		"无论是泡泡浴、清爽修剪，还是可爱造型，我们都用满满的爱呵护您的毛孩子!",
		"我们还提供高品质的宠物粮食、玩具、美容工具，以及各种让宠物开心健康的用品。",
		"因为每一只宠物，都值得拥有最好的关爱 💖",
	},
}

var serviceCards = []pagetempl.ServiceCard{
	{
		Icon: "✂️", Title: "Pet Grooming", Subtitle: "宠物美容",
		Lines: []string{"Dog 🐶: Bath 洗澡 / Full Grooming 美发美容", "Cat 🐱: Bath 洗澡 / Grooming 美容"},
	},
	{
		Icon: "🐕", Title: "Pet Daycare", Subtitle: "当日托管",
		Lines: []string{"我们提供当日托管服务，在您繁忙时照看小宝贝 ❤️", "We provide daycare service when you are busy."},
	},
	{
		Icon: "🏠", Title: "Pet Boarding", Subtitle: "宠物寄养",
		Lines: []string{"我们提供宠物寄养服务，在您旅行时为宠物提供舒适环境 🏡", "We provide boarding when you are traveling."},
	},
	{
		Icon: "🍰", Title: "Pet Foods", Subtitle: "宠物零食",
		Lines: []string{"我们提供手工制作宠物零食，纯天然不含添加剂🥩", "We offer handmade pet snacks with no artificial additive."},
	},
	{
		Icon: "🛍️", Title: "Pet Retails", Subtitle: "宠物商店",
		Lines: []string{"提供宠物零食、玩具及日用品 🛒", "We provide pet food, toys, and supplies."},
	},
	{
		Icon: "🚗", Title: "Pet Pick Ups/Drop Offs", Subtitle: "宠物接送",
		Lines: []string{"我们有提供宠物接送服务，不用担心没有时间接送您的毛孩子 ⌚️", "We provide pickup and dropoff service for pet, don't worry about not having time."},
	},
}

var priceGroups = []pagetempl.PriceGroup{
	{
		Title: "✂️ Pet Grooming 宠物美容",
		Items: []pagetempl.PriceItem{
			{Label: "🐶 Dog Full Grooming (全套美容)", Price: "$60+"},
			{Label: "🐱 Cat Bath (猫咪洗澡)", Price: "$35+"},
		},
	},
	{
		Title: "🏠 Pet Boarding 宠物寄养",
		Items: []pagetempl.PriceItem{
			{Label: "🐶 Small Dog (小型犬) Per Day", Price: "$40"},
			{Label: "🐕 Medium Dog (中型犬) Per Day", Price: "$50"},
			{Label: "🐕‍🦺 Large Dog (大型犬) Per Day", Price: "$65"},
			{Label: "🐱 Cat (猫咪) Per Day", Price: "$35"},
		},
	},
	{
		Title: "🍰 Handmade Snacks 手工零食",
		Note:  []string{"All ingredients are human-grade. No additives.", "所有食材均为人食用级别，无添加剂。"},
		Items: []pagetempl.PriceItem{
			{Label: "🐓 Crispy Chicken Jerky 香酥鸡肉干", Price: "70g / $12"},
			{Label: "🍪 Chicken, Veg & Goat Milk Cookies 鸡肉果蔬羊奶曲奇", Price: "70g / $15"},
			{Label: "🍘 Okra Chicken Patties 秋葵鸡肉饼", Price: "90g / $15"},
			{Label: "🥠 Chicken Chips 鸡肉薯片", Price: "55g / $10"},
			{Label: "🍖 Chicken Chop 鸡肉小排", Price: "100g / $18"},
			{Label: "🍗 Chicken Drumstick 小鸡腿", Price: "70g / $18"},
			{Label: "🌼 Little Daisy Feta Biscuit 小雏菊羊奶酪饼干", Price: "60g / $20"},
			{Label: "🐾 Corgi PP Cookies 柯基pp饼干", Price: "8pcs / $10"},
			{Label: "🍎 Chicken with Apple 鸡肉绕苹果", Price: "70g / $12"},
			{Label: "🧂 Roasted Sesame Chicken Heart 香烤芝麻鸡心", Price: "85g / $15"},
			{Label: "🔥 Roasted Chicken Gizzard 香烤鸡胗", Price: "80g / $15"},
		},
	},
}

func galleryPhotos() []pagetempl.GalleryPhoto {
	photos := make([]pagetempl.GalleryPhoto, 0, galleryPhotoCount)
	for i := 1; i <= galleryPhotoCount; i++ {
		photos = append(photos, pagetempl.GalleryPhoto{
			Src: fmt.Sprintf("/static/gallery/photo%d.jpg", i),
			Alt: fmt.Sprintf("Gallery photo %d", i),
		})
	}
	return photos
}
