package users

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

var (
	mockOrganizations = []string{"Lendsqr", "Lendstar", "Irorun", "Creditville", "PayFlow", "FinTech Hub"}
	mockFirstNames    = []string{
		"Adedeji", "Debby", "Grace", "Tosin", "Chioma", "Oluwaseun", "Emeka", "Ngozi", "Aisha", "Ibrahim",
		"Funmi", "Chinedu", "Blessing", "Victor", "Amara", "Tunde", "Folake", "Ayo", "Chiamaka", "Adebayo",
		"Yemi", "Kemi", "Segun", "Nkechi", "Femi", "Bukola", "Kunle", "Ogechi", "Samuel", "Joy",
	}
	mockLastNames = []string{
		"Adebayo", "Ogana", "Effiom", "Dokunmu", "Ayo", "Okafor", "Eze", "Nwosu", "Hassan", "Bello",
		"Adeleke", "Okoro", "Okonkwo", "Obi", "Chukwu", "Afolabi", "Olaniyan", "Oyebola", "Nnamdi", "Williams",
	}
	mockBanks = []string{"Providus Bank", "GTBank", "Access Bank", "Zenith Bank", "Kuda"}

	mockJoinedFrom = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	mockJoinedTo   = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// GenerateMock builds n plausible user records. The same seed always yields
// the same records. Statuses are weighted 60% active, 20% inactive,
// 15% pending and 5% blacklisted.
func GenerateMock(n int, seed uint64) []Details {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pick := func(list []string) string { return list[rng.IntN(len(list))] }

	span := mockJoinedTo.Sub(mockJoinedFrom)
	out := make([]Details, 0, n)
	for i := 1; i <= n; i++ {
		first, last := pick(mockFirstNames), pick(mockLastNames)
		username := strings.ToLower(first) + "." + strings.ToLower(last)
		if i > 40 {
			username += strconv.Itoa(i)
		}
		org := pick(mockOrganizations)
		orgDomain := strings.ToLower(strings.ReplaceAll(org, " ", ""))

		digits := strconv.Itoa(rng.IntN(900000000) + 100000000)
		phone := fmt.Sprintf("+234 %s %s %s", digits[0:3], digits[3:6], digits[6:])

		var status Status
		switch r := rng.Float64(); {
		case r < 0.6:
			status = StatusActive
		case r < 0.8:
			status = StatusInactive
		case r < 0.95:
			status = StatusPending
		default:
			status = StatusBlacklisted
		}

		joined := mockJoinedFrom.Add(time.Duration(rng.Int64N(int64(span)))).Truncate(time.Minute)
		email := username + "@" + orgDomain + ".com"
		fullName := first + " " + last

		guarantorFirst, guarantorLast := pick(mockFirstNames), pick(mockLastNames)
		guarantor := Guarantor{
			FullName:     guarantorFirst + " " + guarantorLast,
			PhoneNumber:  "0" + strconv.Itoa(rng.IntN(900000000)+7000000000),
			EmailAddress: strings.ToLower(guarantorFirst) + "@gmail.com",
			Relationship: pick([]string{"Sister", "Brother", "Friend", "Parent", "Colleague"}),
		}

		balance := rng.IntN(990000) + 10000
		out = append(out, Details{
			User: User{
				ID:           strconv.Itoa(i),
				Organization: org,
				Username:     username,
				Email:        email,
				PhoneNumber:  phone,
				DateJoined:   joined,
				Status:       status,
			},
			Profile: Profile{
				Personal: PersonalInfo{
					FullName:        fullName,
					PhoneNumber:     phone,
					EmailAddress:    email,
					BVN:             strconv.Itoa(rng.IntN(900000000) + 7000000000),
					Gender:          pick([]string{"Female", "Male"}),
					MaritalStatus:   pick([]string{"Single", "Married"}),
					Children:        pick([]string{"None", "1", "2", "3"}),
					TypeOfResidence: pick([]string{"Parent's Apartment", "Rented Apartment", "Own House"}),
				},
				Education: Education{
					LevelOfEducation:     pick([]string{"B.Sc", "HND", "M.Sc", "OND"}),
					EmploymentStatus:     pick([]string{"Employed", "Self-employed", "Unemployed"}),
					SectorOfEmployment:   pick([]string{"FinTech", "Agriculture", "Retail", "Education"}),
					DurationOfEmployment: strconv.Itoa(rng.IntN(10)+1) + " years",
					OfficeEmail:          strings.ToLower(first) + "@" + orgDomain + ".com",
					MonthlyIncome:        "₦200,000.00- ₦400,000.00",
					LoanRepayment:        formatNaira(rng.IntN(90000)+10000, false),
				},
				Socials: Socials{
					Twitter:   "@" + strings.ToLower(first) + "_" + strings.ToLower(last),
					Facebook:  fullName,
					Instagram: "@" + strings.ToLower(first) + "_" + strings.ToLower(last),
				},
				Guarantors:     []Guarantor{guarantor},
				Tier:           rng.IntN(3) + 1,
				BankAccount:    strconv.Itoa(rng.IntN(900000000) + 9900000000),
				BankName:       pick(mockBanks),
				AccountBalance: formatNaira(balance, true),
				HasLoans:       rng.Float64() < 0.4,
				HasSavings:     rng.Float64() < 0.7,
			},
		})
	}
	return out
}

func formatNaira(amount int, withSymbol bool) string {
	raw := strconv.Itoa(amount)
	var b strings.Builder
	for i, r := range raw {
		if i > 0 && (len(raw)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if !withSymbol {
		return b.String()
	}
	return "₦" + b.String() + ".00"
}
