package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/apas/internal/domain/account"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/pkg/logger"
)

const demoPassword = "password123"

// demoUsers can log in with demoPassword.
var demoUsers = []struct {
	id string
	account.Registration
}{
	{"demo-rahul", account.Registration{
		FirstName: "Rahul", LastName: "Sharma", Gmail: "rahul.sharma@gmail.com",
		Aadhaar: "123456789012", Phone: "9876543210",
		State: "Maharashtra", District: "Mumbai", City: "Mumbai", Pincode: "400001",
	}},
	{"demo-priya", account.Registration{
		FirstName: "Priya", LastName: "Patel", Gmail: "priya.patel@gmail.com",
		Aadhaar: "987654321098", Phone: "9123456789",
		State: "Gujarat", District: "Ahmedabad", City: "Ahmedabad", Pincode: "380001",
	}},
	{"demo-arjun", account.Registration{
		FirstName: "Arjun", LastName: "Singh", Gmail: "arjun.singh@gmail.com",
		Aadhaar: "456789123456", Phone: "9988776655",
		State: "Punjab", District: "Ludhiana", City: "Ludhiana", Pincode: "141001",
	}},
}

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

var demoAthletes = []model.Athlete{
	{
		ID: "ATH001", FirstName: "Arjun", LastName: "Kumar", Sport: "Athletics",
		State: "Delhi", District: "New Delhi", RegistrationDate: day("2024-01-15"),
		ValidationStatus: model.StatusValidated, ExcellenceScore: 85, FitnessScore: 92,
		VideoAnalysisScore: 88, OverallScore: 88, Tier: "Advanced", Age: 22,
		Phone: "9876543210", Email: "arjun.kumar@email.com", Aadhaar: "1234-5678-9012",
		HealthStatus: model.HealthCleared,
	},
	{
		ID: "ATH002", FirstName: "Priya", LastName: "Sharma", Sport: "Swimming",
		State: "Maharashtra", District: "Mumbai", RegistrationDate: day("2024-01-18"),
		ValidationStatus: model.StatusValidated, ExcellenceScore: 78, FitnessScore: 85,
		VideoAnalysisScore: 92, OverallScore: 85, Tier: "Advanced", Age: 20,
		Phone: "9876543211", Email: "priya.sharma@email.com", Aadhaar: "2345-6789-0123",
		HealthStatus: model.HealthCleared,
	},
	{
		ID: "ATH003", FirstName: "Rohit", LastName: "Singh", Sport: "Boxing",
		State: "Punjab", District: "Ludhiana", RegistrationDate: day("2024-01-20"),
		ValidationStatus: model.StatusUnderReview, ExcellenceScore: 72, FitnessScore: 88,
		Tier: "Intermediate", Age: 24,
		Phone: "9876543212", Email: "rohit.singh@email.com", Aadhaar: "3456-7890-1234",
		HealthStatus: model.HealthMedicalReview,
	},
	{
		ID: "ATH004", FirstName: "Anita", LastName: "Patel", Sport: "Badminton",
		State: "Gujarat", District: "Ahmedabad", RegistrationDate: day("2024-01-22"),
		ValidationStatus: model.StatusValidated, ExcellenceScore: 68, FitnessScore: 75,
		VideoAnalysisScore: 82, OverallScore: 75, Tier: "Intermediate", Age: 19,
		Phone: "9876543213", Email: "anita.patel@email.com", Aadhaar: "4567-8901-2345",
		HealthStatus: model.HealthCleared,
	},
	{
		ID: "ATH005", FirstName: "Vikram", LastName: "Reddy", Sport: "Tennis",
		State: "Telangana", District: "Hyderabad", RegistrationDate: day("2024-01-25"),
		ValidationStatus: model.StatusPending, ExcellenceScore: 45,
		Tier: "Beginner", Age: 21,
		Phone: "9876543214", Email: "vikram.reddy@email.com", Aadhaar: "5678-9012-3456",
		HealthStatus: model.HealthCleared,
	},
	{
		ID: "ATH006", FirstName: "Sneha", LastName: "Gupta", Sport: "Athletics",
		State: "Karnataka", District: "Bangalore", RegistrationDate: day("2024-01-28"),
		ValidationStatus: model.StatusRejected, ExcellenceScore: 35,
		Tier: "Beginner", Age: 18,
		Phone: "9876543215", Email: "sneha.gupta@email.com", Aadhaar: "6789-0123-4567",
		HealthStatus: model.HealthBlocked,
	},
}

var demoLeaderboard = []model.LeaderboardEntry{
	{AthleteID: "LB001", Name: "Arjun Kumar", Sport: "Athletics", Score: 95, Tier: "Advanced", Location: "Delhi"},
	{AthleteID: "LB002", Name: "Priya Sharma", Sport: "Swimming", Score: 92, Tier: "Advanced", Location: "Mumbai"},
	{AthleteID: "LB003", Name: "Rohit Singh", Sport: "Boxing", Score: 89, Tier: "Advanced", Location: "Punjab"},
	{AthleteID: "LB004", Name: "Anita Patel", Sport: "Badminton", Score: 85, Tier: "Intermediate", Location: "Gujarat"},
	{AthleteID: "LB005", Name: "Vikram Reddy", Sport: "Tennis", Score: 82, Tier: "Intermediate", Location: "Hyderabad"},
	{AthleteID: "LB006", Name: "Sneha Gupta", Sport: "Athletics", Score: 78, Tier: "Intermediate", Location: "Bangalore"},
	{AthleteID: "LB007", Name: "Rajesh Kumar", Sport: "Wrestling", Score: 75, Tier: "Intermediate", Location: "Haryana"},
	{AthleteID: "LB008", Name: "Meera Joshi", Sport: "Archery", Score: 72, Tier: "Beginner", Location: "Rajasthan"},
	{AthleteID: "LB009", Name: "Amit Verma", Sport: "Cycling", Score: 68, Tier: "Beginner", Location: "UP"},
	{AthleteID: "LB010", Name: "Kavya Nair", Sport: "Gymnastics", Score: 65, Tier: "Beginner", Location: "Kerala"},
}

// seedDemoData loads the demo accounts, roster and leaderboard. Rows that
// already exist are left alone, so seeding a persistent store is repeatable.
func (s *Service) seedDemoData(ctx context.Context) error {
	users := 0
	for _, d := range demoUsers {
		r := d.Registration
		r.Password, r.ConfirmPassword, r.AgreeToTerms = demoPassword, demoPassword, true
		if _, err := s.createUser(ctx, d.id, r); err != nil {
			if errors.Is(err, account.ErrDuplicate) {
				continue
			}
			return err
		}
		users++
	}

	for _, a := range demoAthletes {
		if _, err := s.athletes.Get(ctx, a.ID); err == nil {
			continue
		}
		if err := s.athletes.Upsert(ctx, a); err != nil {
			return err
		}
	}

	for _, e := range demoLeaderboard {
		if _, err := s.board.Submit(ctx, e); err != nil {
			return err
		}
	}

	s.log().Info(ctx, "demo data seeded",
		logger.Int("users", users),
		logger.Int("athletes", len(demoAthletes)),
		logger.Int("leaderboard", len(demoLeaderboard)),
	)
	return nil
}
