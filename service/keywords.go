package service

// DefaultCategory 无法识别时的兜底类别
const DefaultCategory = "uncategorized"

// CategoryInfo 类别展示信息
type CategoryInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// CategoryTable 系统内置类别与关键词表，只读
type CategoryTable struct {
	order    []string
	info     map[string]CategoryInfo
	keywords map[string][]string
}

// NewCategoryTable 构建内置类别表
// 类别顺序固定，匹配按该顺序进行，保证同样输入得到同样结果
func NewCategoryTable() *CategoryTable {
	t := &CategoryTable{
		order: []string{
			"food", "transport", "entertainment", "bills",
			"shopping", "health", "education", "income", "investment",
		},
		info: map[string]CategoryInfo{
			"food":          {ID: "food", Label: "餐饮", Icon: "🍜", Color: "#ef4444"},
			"transport":     {ID: "transport", Label: "交通", Icon: "🚇", Color: "#3b82f6"},
			"entertainment": {ID: "entertainment", Label: "娱乐", Icon: "🎬", Color: "#ec4899"},
			"bills":         {ID: "bills", Label: "账单", Icon: "🧾", Color: "#f59e0b"},
			"shopping":      {ID: "shopping", Label: "购物", Icon: "🛍️", Color: "#a855f7"},
			"health":        {ID: "health", Label: "医疗健康", Icon: "🏥", Color: "#10b981"},
			"education":     {ID: "education", Label: "教育", Icon: "📚", Color: "#14b8a6"},
			"income":        {ID: "income", Label: "收入", Icon: "💰", Color: "#22c55e"},
			"investment":    {ID: "investment", Label: "投资", Icon: "📈", Color: "#6366f1"},
			DefaultCategory: {ID: DefaultCategory, Label: "未分类", Icon: "❓", Color: "#64748b"},
		},
		keywords: map[string][]string{
			"food": {
				"starbucks", "mcdonald", "kfc", "burger", "pizza", "restaurant",
				"cafe", "coffee", "doordash", "ubereats", "grubhub",
				"星巴克", "麦当劳", "肯德基", "必胜客", "美团", "饿了么", "餐厅", "外卖",
			},
			"transport": {
				"uber", "lyft", "didi", "taxi", "metro", "subway", "bus",
				"gas", "shell", "parking",
				"滴滴", "地铁", "公交", "打车", "加油", "停车",
			},
			"entertainment": {
				"netflix", "spotify", "youtube", "disney", "hulu", "cinema",
				"movie", "steam", "playstation", "xbox",
				"爱奇艺", "腾讯视频", "网易云音乐", "电影", "游戏", "bilibili",
			},
			"bills": {
				"electric", "water", "internet", "phone", "utility", "rent",
				"insurance", "verizon", "comcast",
				"电费", "水费", "话费", "宽带", "房租", "物业", "保险",
			},
			"shopping": {
				"amazon", "walmart", "target", "costco", "ebay", "aliexpress",
				"淘宝", "京东", "拼多多", "天猫", "商场",
			},
			"health": {
				"pharmacy", "hospital", "clinic", "dental", "doctor", "cvs",
				"walgreens", "gym", "fitness",
				"药店", "医院", "诊所", "体检", "健身",
			},
			"education": {
				"coursera", "udemy", "university", "college", "school",
				"tuition", "bookstore",
				"学费", "培训", "课程", "书店", "网课",
			},
			"income": {
				"salary", "payroll", "deposit", "refund", "bonus",
				"工资", "薪资", "退款", "奖金", "报销",
			},
			"investment": {
				"vanguard", "fidelity", "robinhood", "schwab", "etrade",
				"crypto", "coinbase",
				"基金", "股票", "理财", "证券",
			},
		},
	}
	return t
}

// Categories 返回全部类别（含未分类，排在最后）
func (t *CategoryTable) Categories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(t.order)+1)
	for _, id := range t.order {
		out = append(out, t.info[id])
	}
	out = append(out, t.info[DefaultCategory])
	return out
}

// Valid 类别是否合法（内置类别或未分类）
func (t *CategoryTable) Valid(category string) bool {
	_, ok := t.info[category]
	return ok
}

// Keywords 指定类别的关键词，不存在返回 nil
func (t *CategoryTable) Keywords(category string) []string {
	return t.keywords[category]
}
